package world

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/light"
	"github.com/dm-vev/chunkengine/server/world/scheduler"
	"github.com/dm-vev/chunkengine/server/world/ticket"
	"github.com/google/uuid"
	"github.com/segmentio/fasthash/fnv1a"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// SpawnHolder is the holder of the ticket that keeps the spawn area loaded.
var SpawnHolder = uuid.NewSHA1(uuid.NameSpaceOID, []byte("chunkengine:spawn"))

const shardCount = 32

// shard is a part of the column map of a Level. Columns are spread over
// shards by the hash of their position.
type shard struct {
	mu      sync.RWMutex
	columns map[ChunkPos]*column
}

// Level is a world made of columns that are loaded, generated, ticked and
// saved as tickets require. A Level is safe for concurrent use; its tick is
// driven by a single goroutine, either its own tick loop or the caller of
// Tick.
type Level struct {
	conf Config
	lock *sessionLock

	shards [shardCount]shard
	loads  singleflight.Group
	io     *semaphore.Weighted

	tickets *ticket.Manager
	sched   *scheduler.Scheduler[tickPayload]
	light   *light.Engine
	metrics *Metrics
	random  *randomTicker

	queue chan transaction

	generatorQueue chan generationTask
	// generatorQueueSaturation counts how often generation tasks had to wait
	// for a place in the queue. It rate limits backpressure warnings.
	generatorQueueSaturation atomic.Uint64
	lastQueueSaturationLog   atomic.Uint64

	eventMu sync.Mutex
	events  []levelEvent

	// ticking and unloadQueue are only accessed by the goroutine driving the
	// tick.
	ticking     map[ChunkPos]struct{}
	unloadQueue map[ChunkPos]uint64

	tps atomic.Uint64

	closing   chan struct{}
	closeOnce sync.Once
	running   sync.WaitGroup
	pending   sync.WaitGroup
}

type levelEventKind uint8

const (
	eventLoaded levelEventKind = iota
	eventGenerated
	eventUnloadAborted
)

// levelEvent is reported by load and unload goroutines and handled at the
// start of the next tick.
type levelEvent struct {
	pos  ChunkPos
	kind levelEventKind
}

func (l *Level) report(pos ChunkPos, kind levelEventKind) {
	l.eventMu.Lock()
	l.events = append(l.events, levelEvent{pos: pos, kind: kind})
	l.eventMu.Unlock()
}

func (l *Level) shard(pos ChunkPos) *shard {
	return &l.shards[fnv1a.HashUint64(pos.Pack())%shardCount]
}

// column returns the resident column at the position passed, if any.
func (l *Level) column(pos ChunkPos) (*column, bool) {
	s := l.shard(pos)
	s.mu.RLock()
	c, ok := s.columns[pos]
	s.mu.RUnlock()
	return c, ok
}

// Range returns the vertical range of the Level.
func (l *Level) Range() cube.Range {
	return l.conf.Range
}

// CurrentTick returns the amount of ticks the Level has run.
func (l *Level) CurrentTick() uint64 {
	return l.sched.CurrentTick()
}

// TPS returns the average ticks per second measured by the tick loop.
func (l *Level) TPS() float64 {
	return math.Float64frombits(l.tps.Load())
}

// Metrics returns the counters of the Level.
func (l *Level) Metrics() *Metrics {
	return l.metrics
}

// SchedulerMetrics returns the counters of the tick scheduler of the Level.
func (l *Level) SchedulerMetrics() scheduler.MetricsSnapshot {
	return l.sched.Metrics().Snapshot()
}

// Loaded reports if the column at the position passed is loaded.
func (l *Level) Loaded(pos ChunkPos) bool {
	c, ok := l.column(pos)
	return ok && c.State() >= StateLoaded && c.State() < StateEvicted
}

// State returns the lifecycle state of the column at the position passed.
// Columns that are not resident report StateEvicted.
func (l *Level) State(pos ChunkPos) ColumnState {
	if c, ok := l.column(pos); ok {
		return c.State()
	}
	return StateEvicted
}

// LoadedCount returns the amount of resident columns.
func (l *Level) LoadedCount() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.RLock()
		n += len(s.columns)
		s.mu.RUnlock()
	}
	return n
}

// forEachColumn calls f for every resident column.
func (l *Level) forEachColumn(f func(c *column)) {
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.RLock()
		cols := make([]*column, 0, len(s.columns))
		for _, c := range s.columns {
			cols = append(cols, c)
		}
		s.mu.RUnlock()
		for _, c := range cols {
			f(c)
		}
	}
}

// AddTicket adds a ticket for the holder at the position and level passed.
// The columns affected are loaded or start ticking on the next tick.
func (l *Level) AddTicket(holder uuid.UUID, pos ChunkPos, level uint8) bool {
	return l.tickets.Add(holder, pos, level)
}

// RemoveTicket removes a ticket added with AddTicket. Removing a ticket that
// was never added does nothing.
func (l *Level) RemoveTicket(holder uuid.UUID, pos ChunkPos, level uint8) bool {
	return l.tickets.Remove(holder, pos, level)
}

// RemoveTickets removes all tickets of the holder passed.
func (l *Level) RemoveTickets(holder uuid.UUID) int {
	return l.tickets.RemoveHolder(holder)
}

// Tickets returns the ticket manager of the Level.
func (l *Level) Tickets() *ticket.Manager {
	return l.tickets
}

// Save stores every modified column without unloading it.
func (l *Level) Save() error {
	if l.conf.ReadOnly {
		return nil
	}
	var errs []error
	l.forEachColumn(func(c *column) {
		if c.State() != StateLoaded {
			return
		}
		if err := l.save(context.Background(), c); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Close stops the tick loop and the generator workers, saves all modified
// columns, closes the Provider and releases the session lock.
func (l *Level) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closing)
		l.running.Wait()
		l.runTransactions()
		l.pending.Wait()

		errs := []error{l.Save()}
		if perr := l.conf.Provider.Close(); perr != nil {
			errs = append(errs, perr)
		}
		if l.lock != nil {
			errs = append(errs, l.lock.release())
		}
		err = errors.Join(errs...)
	})
	return err
}

// closed reports if Close was called.
func (l *Level) closed() bool {
	select {
	case <-l.closing:
		return true
	default:
		return false
	}
}

// closingContext returns a context that is cancelled once the Level starts
// closing.
func (l *Level) closingContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-l.closing:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// absent reports if the column at the position passed lies outside of the
// world border.
func (l *Level) absent(pos ChunkPos) bool {
	b := l.conf.WorldBorder
	if b <= 0 {
		return false
	}
	return abs(int(pos[0])) > b || abs(int(pos[1])) > b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
