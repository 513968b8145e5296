package world

import (
	"context"
	"fmt"
	"slices"

	"github.com/dm-vev/chunkengine/server/world/chunk"
	"github.com/dm-vev/chunkengine/server/world/scheduler"
	"github.com/dm-vev/chunkengine/server/world/ticket"
)

// CleanChunks starts unloading the loaded columns at the positions passed and
// returns the amount of unloads started. A column being unloaded is saved
// once every borrow of it was released and is then removed from memory,
// unless it was borrowed again or a ticket requires it in the meantime.
func (l *Level) CleanChunks(positions []ChunkPos) int {
	n := 0
	for _, pos := range positions {
		c, ok := l.column(pos)
		if !ok {
			continue
		}
		c.refMu.Lock()
		marked := c.State() == StateLoaded
		if marked {
			c.revived = false
			c.setState(StateMarkedForUnload)
		}
		c.refMu.Unlock()
		if !marked {
			continue
		}
		n++
		l.pending.Add(1)
		go l.evict(c)
	}
	return n
}

// CollectGarbage starts unloading every loaded column that no ticket keeps
// loaded, without waiting for the unload delay, and returns the amount of
// unloads started.
func (l *Level) CollectGarbage() int {
	var positions []ChunkPos
	l.forEachColumn(func(c *column) {
		if c.State() == StateLoaded && l.tickets.Class(c.pos) == ticket.Unloaded {
			positions = append(positions, c.pos)
		}
	})
	return l.CleanChunks(positions)
}

// evict waits for the column passed to become idle, saves it and removes it
// from the column map.
func (l *Level) evict(c *column) {
	defer l.pending.Done()

	ctx, cancel := l.closingContext()
	defer cancel()
	if err := c.waitIdle(ctx); err != nil || c.isRevived() {
		l.abortUnload(c, nil)
		return
	}
	c.setState(StateSaving)
	ticks := l.sched.Extract(c.pos)
	if err := l.store(ctx, c, ticks); err != nil {
		l.conf.Log.Error("save column: "+err.Error(), "X", c.pos[0], "Z", c.pos[1])
		l.abortUnload(c, ticks)
		return
	}

	s := l.shard(c.pos)
	s.mu.Lock()
	c.refMu.Lock()
	keep := c.revived || c.refs > 0 || l.tickets.Class(c.pos) != ticket.Unloaded
	if !keep {
		delete(s.columns, c.pos)
		c.setState(StateEvicted)
	}
	c.refMu.Unlock()
	s.mu.Unlock()

	if keep {
		l.abortUnload(c, ticks)
		return
	}
	l.metrics.incEvicted()
}

// abortUnload returns a column that was being unloaded to the loaded state
// and puts back the ticks that were taken out of the scheduler.
func (l *Level) abortUnload(c *column, ticks []scheduler.OrderedTick[tickPayload]) {
	l.sched.Restore(ticks)
	c.refMu.Lock()
	c.revived = false
	c.setState(StateLoaded)
	c.refMu.Unlock()
	l.metrics.incRevived()
	l.report(c.pos, eventUnloadAborted)
}

func (c *column) isRevived() bool {
	c.refMu.Lock()
	defer c.refMu.Unlock()
	return c.revived
}

// save stores a loaded column without unloading it.
func (l *Level) save(ctx context.Context, c *column) error {
	if !c.modified.Load() {
		return nil
	}
	ticks := l.sched.Extract(c.pos)
	defer l.sched.Restore(ticks)
	return l.store(ctx, c, ticks)
}

// store writes a snapshot of the column passed and the pending ticks in it to
// the Provider, if it was modified since it was last stored.
func (l *Level) store(ctx context.Context, c *column, ticks []scheduler.OrderedTick[tickPayload]) error {
	if l.conf.ReadOnly || !c.modified.Load() {
		return nil
	}
	c.mu.RLock()
	c.modified.Store(false)
	snapshot := &chunk.Column{
		Chunk:         c.data.Chunk.Clone(),
		BlockEntities: slices.Clone(c.data.BlockEntities),
		Status:        c.data.Status,
		LastUpdate:    int64(l.sched.CurrentTick()),
	}
	c.mu.RUnlock()
	snapshot.BlockTicks, snapshot.FluidTicks = persistTicks(ticks, l.sched.CurrentTick())

	if err := l.io.Acquire(ctx, 1); err != nil {
		c.modified.Store(true)
		return err
	}
	defer l.io.Release(1)
	if err := l.conf.Provider.StoreColumn(c.pos, snapshot); err != nil {
		c.modified.Store(true)
		return fmt.Errorf("store column %v: %w", c.pos, err)
	}
	l.metrics.incSaved()
	return nil
}

// persistTicks converts pending ticks to their stored form, with delays
// relative to the current tick.
func persistTicks(ticks []scheduler.OrderedTick[tickPayload], current uint64) (block, fluid []chunk.ScheduledTick) {
	for _, t := range ticks {
		st := chunk.ScheduledTick{
			Pos:      t.Pos,
			Block:    t.Payload.block,
			Delay:    max(int64(t.ScheduledAt)-int64(current), 0),
			Priority: t.Priority,
		}
		if t.Payload.fluid {
			fluid = append(fluid, st)
		} else {
			block = append(block, st)
		}
	}
	return block, fluid
}

// restoreTicks schedules the ticks stored in a column that was just read.
func (l *Level) restoreTicks(col *chunk.Column) {
	for _, t := range col.BlockTicks {
		l.sched.Schedule(t.Pos, tickPayload{block: t.Block}, uint64(max(t.Delay, 0)), t.Priority)
	}
	for _, t := range col.FluidTicks {
		l.sched.Schedule(t.Pos, tickPayload{block: t.Block, fluid: true}, uint64(max(t.Delay, 0)), t.Priority)
	}
	col.BlockTicks, col.FluidTicks = nil, nil
}
