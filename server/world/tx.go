package world

import (
	"math/rand/v2"
	"slices"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/chunk"
	"github.com/dm-vev/chunkengine/server/world/scheduler"
)

// Tx is a transaction on a Level. A Tx is only valid during the function or
// tick it was passed to and must not be used after.
//
// A Tx passed to a ScheduledTicker or RandomTicker may only access the chunks
// of the tick batch it runs in and the chunks directly around them. Reads
// outside of that area return air, writes are ignored. A Tx passed to a
// function queued with Level.Exec may access every loaded column.
type Tx struct {
	l     *Level
	batch *scheduler.Batch[tickPayload]
	r     *rand.Rand
}

// Range returns the vertical range of the Level.
func (tx *Tx) Range() cube.Range {
	return tx.l.conf.Range
}

// Rand returns the random source of the transaction.
func (tx *Tx) Rand() *rand.Rand {
	return tx.r
}

// Loaded reports if the chunk holding the position passed is loaded and may
// be accessed by the transaction.
func (tx *Tx) Loaded(pos cube.Pos) bool {
	return tx.access(pos.ChunkPos(), false, func(*column) {})
}

// Block returns the block at the position passed. Positions in chunks that
// are not loaded or cannot be accessed hold air.
func (tx *Tx) Block(pos cube.Pos) Block {
	rid, _ := tx.blockRID(pos)
	return blockByRuntimeIDOrAir(rid)
}

// blockRID returns the runtime ID of the block at the position passed and if
// its chunk could be accessed.
func (tx *Tx) blockRID(pos cube.Pos) (uint32, bool) {
	if pos.OutOfBounds(tx.Range()) {
		return airRID, tx.Loaded(pos)
	}
	rid := airRID
	x, y, z := pos.Local()
	ok := tx.access(pos.ChunkPos(), false, func(c *column) {
		rid = c.data.Chunk.Block(x, y, z)
	})
	return rid, ok
}

// SetBlock places the block passed at the position passed and updates light
// around it. Block entities at the position are removed.
func (tx *Tx) SetBlock(pos cube.Pos, b Block) {
	if pos.OutOfBounds(tx.Range()) {
		return
	}
	if b == nil {
		b = Air{}
	}
	rid := BlockRuntimeID(b)
	old := rid
	x, y, z := pos.Local()
	tx.access(pos.ChunkPos(), true, func(c *column) {
		if old = c.data.Chunk.Block(x, y, z); old == rid {
			return
		}
		c.data.Chunk.SetBlock(x, y, z, rid)
		c.data.BlockEntities = slices.DeleteFunc(c.data.BlockEntities, func(be chunk.BlockEntity) bool {
			return be.Pos == pos
		})
		c.modified.Store(true)
	})
	if old == rid {
		return
	}
	prev, next := propertiesOf(old), propertiesOf(rid)
	tx.l.light.OnBlockChange(pos, prev.opacity, next.opacity, next.emission)
}

// BlockEntity returns the block entity data at the position passed.
func (tx *Tx) BlockEntity(pos cube.Pos) (map[string]any, bool) {
	var data map[string]any
	tx.access(pos.ChunkPos(), false, func(c *column) {
		for _, be := range c.data.BlockEntities {
			if be.Pos == pos {
				data = be.Data
				return
			}
		}
	})
	return data, data != nil
}

// SetBlockEntity sets the block entity data at the position passed,
// replacing any existing data there.
func (tx *Tx) SetBlockEntity(pos cube.Pos, data map[string]any) {
	tx.access(pos.ChunkPos(), true, func(c *column) {
		c.data.BlockEntities = slices.DeleteFunc(c.data.BlockEntities, func(be chunk.BlockEntity) bool {
			return be.Pos == pos
		})
		if data != nil {
			c.data.BlockEntities = append(c.data.BlockEntities, chunk.BlockEntity{Pos: pos, Data: data})
		}
		c.modified.Store(true)
	})
}

// Light returns the block light level at the position passed.
func (tx *Tx) Light(pos cube.Pos) uint8 {
	if pos.OutOfBounds(tx.Range()) {
		return 0
	}
	var v uint8
	x, y, z := pos.Local()
	tx.access(pos.ChunkPos(), false, func(c *column) {
		v = c.data.Chunk.BlockLight(x, y, z)
	})
	return v
}

// SkyLight returns the sky light level at the position passed. Positions
// above the world always have full sky light.
func (tx *Tx) SkyLight(pos cube.Pos) uint8 {
	if pos[1] > tx.Range().Max() {
		return 15
	}
	if pos.OutOfBounds(tx.Range()) {
		return 0
	}
	var v uint8
	x, y, z := pos.Local()
	tx.access(pos.ChunkPos(), false, func(c *column) {
		v = c.data.Chunk.SkyLight(x, y, z)
	})
	return v
}

// ScheduleBlockUpdate schedules the ScheduledTick method of the block passed
// to be called after delay ticks, if the block at the position is then still
// of the same type. Lower priorities run first among updates due in the same
// tick. Updates in chunks that are not loaded are dropped, as are updates
// already scheduled for the same block and position.
func (tx *Tx) ScheduleBlockUpdate(pos cube.Pos, b Block, delay uint64, priority int32) {
	tx.schedule(pos, tickPayload{block: BlockRuntimeID(b)}, delay, priority)
}

// ScheduleFluidUpdate schedules an update of the liquid passed at the
// position passed. Fluid updates are kept apart from block updates, so that
// a liquid may flow into a block that has an update of its own scheduled.
func (tx *Tx) ScheduleFluidUpdate(pos cube.Pos, liquid Liquid, delay uint64, priority int32) {
	tx.schedule(pos, tickPayload{block: BlockRuntimeID(liquid), fluid: true}, delay, priority)
}

// BlockUpdateScheduled reports if an update of the block passed is pending at
// the position passed.
func (tx *Tx) BlockUpdateScheduled(pos cube.Pos, b Block) bool {
	return tx.l.sched.Scheduled(pos, tickPayload{block: BlockRuntimeID(b)})
}

// FluidUpdateScheduled reports if an update of the liquid passed is pending at
// the position passed.
func (tx *Tx) FluidUpdateScheduled(pos cube.Pos, liquid Liquid) bool {
	return tx.l.sched.Scheduled(pos, tickPayload{block: BlockRuntimeID(liquid), fluid: true})
}

func (tx *Tx) schedule(pos cube.Pos, payload tickPayload, delay uint64, priority int32) {
	if pos.OutOfBounds(tx.Range()) {
		return
	}
	c, ok := tx.l.column(pos.ChunkPos())
	if !ok || c.State() < StateLoaded || c.State() == StateEvicted {
		return
	}
	tx.l.sched.Schedule(pos, payload, delay, priority)
}

// access calls f with the column of the chunk passed while holding its lock,
// for writing if write is true. access returns false without calling f if the
// chunk is not loaded or outside of the area the transaction may access.
func (tx *Tx) access(pos ChunkPos, write bool, f func(c *column)) bool {
	if tx.batch != nil && !tx.batch.Covers(pos) {
		return false
	}
	c, ok := tx.l.resident(pos)
	if !ok {
		return false
	}
	defer c.release()
	if s := c.State(); s < StateLoaded || s == StateEvicted {
		return false
	}
	if write {
		c.mu.Lock()
		defer c.mu.Unlock()
	} else {
		c.mu.RLock()
		defer c.mu.RUnlock()
	}
	f(c)
	return true
}
