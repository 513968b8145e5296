package world

import (
	"cmp"
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/scheduler"
	"github.com/dm-vev/chunkengine/server/world/ticket"
)

// ticker implements the Level tick loop.
type ticker struct {
	interval time.Duration
}

const (
	tickInterval        = time.Second / 20
	tpsSampleSize       = 20
	tpsWarningThreshold = 19.0
	// pruneInterval is the amount of ticks between passes that drop light
	// updates waiting for columns that will never exist.
	pruneInterval = 600
)

// tickLoop ticks the Level 20 times every second until it is closed,
// measuring the average ticks per second as it goes.
func (t ticker) tickLoop(l *Level) {
	defer l.running.Done()

	ctx, cancel := l.closingContext()
	defer cancel()

	tc := time.NewTicker(t.interval)
	defer tc.Stop()
	lastTick := time.Now()
	var (
		durationSum time.Duration
		ticksCount  int
		warned      bool
	)
	for {
		select {
		case <-tc.C:
			tickStart := time.Now()
			duration := tickStart.Sub(lastTick)
			lastTick = tickStart
			if duration > 0 {
				durationSum += duration
				ticksCount++
				if ticksCount >= tpsSampleSize {
					avg := durationSum / time.Duration(ticksCount)
					tps := 1.0 / avg.Seconds()
					l.tps.Store(math.Float64bits(tps))
					if tps < tpsWarningThreshold {
						if !warned {
							l.conf.Log.Warn("TPS dropped below threshold.", "tps", tps)
							warned = true
						}
					} else {
						warned = false
					}
					durationSum = 0
					ticksCount = 0
				}
			}
			if err := l.Tick(ctx); err != nil && ctx.Err() == nil {
				l.conf.Log.Error("tick: " + err.Error())
			}
		case <-l.closing:
			return
		}
	}
}

// Tick runs a single tick of the Level: queued transactions run first, then
// ticket changes are applied and columns due for unloading are unloaded.
// After that, due scheduled ticks and random ticks are executed in batches of
// disjoint chunks and light is propagated. Tick must not be called
// concurrently, nor while the Level runs its own tick loop.
func (l *Level) Tick(ctx context.Context) error {
	l.runTransactions()
	l.processEvents()
	l.applyTicketChanges()
	l.unloadDue()

	extra := l.random.ticks(l)
	batches := l.sched.AdvanceTick(l.isTicking, extra...)
	err := l.sched.Run(ctx, batches, l.runBatch)

	l.light.Propagate()
	if l.sched.CurrentTick()%pruneInterval == 0 {
		if n := l.light.PruneAbsent(); n > 0 {
			l.conf.Log.Debug("dropped light updates outside of world border", "count", n)
		}
	}
	return err
}

// processEvents handles columns that finished loading or were kept in memory
// since the last tick.
func (l *Level) processEvents() {
	l.eventMu.Lock()
	events := l.events
	l.events = nil
	l.eventMu.Unlock()

	for _, ev := range events {
		switch ev.kind {
		case eventLoaded, eventGenerated:
			l.light.ChunkLoaded(ev.pos, ev.kind == eventGenerated)
		}
		switch l.tickets.Class(ev.pos) {
		case ticket.Unloaded:
			l.queueUnload(ev.pos)
		case ticket.Ticking:
			l.ticking[ev.pos] = struct{}{}
		}
	}
}

// applyTicketChanges loads, starts ticking or queues unloads of columns whose
// ticket level changed.
func (l *Level) applyTicketChanges() {
	for _, ch := range l.tickets.DrainChanges() {
		if ch.New == ticket.Ticking {
			l.ticking[ch.Pos] = struct{}{}
		} else {
			delete(l.ticking, ch.Pos)
		}
		if ch.New == ticket.Unloaded {
			if _, ok := l.column(ch.Pos); ok {
				l.queueUnload(ch.Pos)
			}
			continue
		}
		delete(l.unloadQueue, ch.Pos)
		l.load(ch.Pos)
	}
}

// queueUnload queues the column at the position passed to be unloaded after
// the unload delay, unless it is already queued.
func (l *Level) queueUnload(pos ChunkPos) {
	if _, ok := l.unloadQueue[pos]; ok {
		return
	}
	l.unloadQueue[pos] = l.sched.CurrentTick() + uint64(l.conf.UnloadDelay)
}

// unloadDue unloads all columns whose unload delay passed.
func (l *Level) unloadDue() {
	current := l.sched.CurrentTick()
	var due []ChunkPos
	for pos, deadline := range l.unloadQueue {
		if deadline > current {
			continue
		}
		delete(l.unloadQueue, pos)
		if l.tickets.Class(pos) == ticket.Unloaded {
			due = append(due, pos)
		}
	}
	l.CleanChunks(due)
}

// isTicking reports if blocks in the chunk passed may be ticked.
func (l *Level) isTicking(pos ChunkPos) bool {
	if _, ok := l.ticking[pos]; !ok {
		return false
	}
	c, ok := l.column(pos)
	return ok && c.State() == StateLoaded
}

// runBatch executes the ticks of a batch in order. Ticks whose block changed
// type since they were scheduled are skipped.
func (l *Level) runBatch(ctx context.Context, b scheduler.Batch[tickPayload]) error {
	first := b.Ticks[0].Chunk()
	tx := &Tx{
		l:     l,
		batch: &b,
		r:     rand.New(rand.NewPCG(l.conf.Seed^l.sched.CurrentTick(), first.Morton())),
	}
	executed := 0
	for _, t := range b.Ticks {
		if err := ctx.Err(); err != nil {
			l.metrics.addTicks(executed)
			return err
		}
		current, ok := tx.blockRID(t.Pos)
		if !ok {
			continue
		}
		if t.Payload.random {
			if current != t.Payload.block {
				continue
			}
			if rt, ok := blockByRuntimeIDOrAir(current).(RandomTicker); ok {
				rt.RandomTick(t.Pos, tx, tx.r)
				executed++
			}
			continue
		}
		if !sameBlockType(current, t.Payload.block) {
			continue
		}
		if st, ok := blockByRuntimeIDOrAir(current).(ScheduledTicker); ok {
			st.ScheduledTick(t.Pos, tx, tx.r)
			executed++
		}
	}
	l.metrics.addTicks(executed)
	return nil
}

// tickPayload identifies a scheduled or random tick. Scheduled ticks are
// coalesced by position and payload.
type tickPayload struct {
	block  uint32
	fluid  bool
	random bool
}

// randomTicker selects the random ticks of every tick. It is only used by
// the goroutine driving the tick.
type randomTicker struct {
	r   *rand.Rand
	g   randUint4
	seq uint64
}

func newRandomTicker(seed uint64) *randomTicker {
	return &randomTicker{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// ticks selects RandomTickSpeed positions in every section of every ticking
// column and returns a tick for each position that holds a RandomTicker.
// Columns are visited in a fixed order so that the selection only depends on
// the seed.
func (rt *randomTicker) ticks(l *Level) []scheduler.OrderedTick[tickPayload] {
	speed := l.conf.RandomTickSpeed
	if speed <= 0 || len(l.ticking) == 0 {
		return nil
	}
	positions := make([]ChunkPos, 0, len(l.ticking))
	for pos := range l.ticking {
		positions = append(positions, pos)
	}
	slices.SortFunc(positions, func(a, b ChunkPos) int {
		return cmp.Compare(a.Morton(), b.Morton())
	})

	next := l.sched.CurrentTick() + 1
	var ticks []scheduler.OrderedTick[tickPayload]
	for _, pos := range positions {
		c, ok := l.column(pos)
		if !ok || c.State() != StateLoaded {
			continue
		}
		base := cube.Pos{int(pos[0]) << 4, 0, int(pos[1]) << 4}

		c.mu.RLock()
		for i, sec := range c.data.Chunk.Sections() {
			blocks := sec.Blocks()
			if !blocks.Any(func(rid uint32) bool { return propertiesOf(rid).randomTicker }) {
				continue
			}
			secY := int(c.data.Chunk.SectionY(i)) << 4
			for range speed {
				x, y, z := rt.g.uint4(rt.r), rt.g.uint4(rt.r), rt.g.uint4(rt.r)
				rid := blocks.At(x, y, z)
				if !propertiesOf(rid).randomTicker {
					continue
				}
				rt.seq++
				ticks = append(ticks, scheduler.OrderedTick[tickPayload]{
					Pos:         base.Add(cube.Pos{int(x), secY + int(y), int(z)}),
					Payload:     tickPayload{block: rid, random: true},
					ScheduledAt: next,
					Priority:    math.MaxInt32,
					Sequence:    rt.seq,
				})
			}
		}
		c.mu.RUnlock()
	}
	return ticks
}

// randUint4 is a structure used to generate random uint4s.
type randUint4 struct {
	x uint64
	n uint8
}

// uint4 returns a random uint4.
func (g *randUint4) uint4(r *rand.Rand) uint8 {
	if g.n == 0 {
		g.x = r.Uint64()
		g.n = 16
	}
	val := g.x & 0b1111

	g.x >>= 4
	g.n--
	return uint8(val)
}

// transaction is a function queued with Exec, run by the goroutine driving
// the tick.
type transaction struct {
	f    func(tx *Tx)
	done chan struct{}
}

// Exec queues f to be run at the start of the next tick with a Tx that may
// access every loaded column. Exec returns a channel that is closed once f
// was run. If the Level is closed before f could run, the channel is closed
// without running f.
func (l *Level) Exec(f func(tx *Tx)) <-chan struct{} {
	done := make(chan struct{})
	select {
	case l.queue <- transaction{f: f, done: done}:
	case <-l.closing:
		close(done)
	}
	return done
}

// runTransactions runs every transaction that is currently queued.
func (l *Level) runTransactions() {
	for {
		select {
		case t := <-l.queue:
			t.f(&Tx{l: l, r: l.random.r})
			close(t.done)
		default:
			return
		}
	}
}
