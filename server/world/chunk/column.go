package chunk

import (
	"errors"

	"github.com/dm-vev/chunkengine/server/block/cube"
)

// ErrMalformed is returned when a stored chunk record cannot be turned back
// into a Column because its structure is inconsistent.
var ErrMalformed = errors.New("chunk: malformed record")

// Column is the persisted form of a chunk: the Chunk itself together with its
// block entities and the scheduled updates that were pending when it was
// saved.
type Column struct {
	Chunk         *Chunk
	BlockEntities []BlockEntity
	BlockTicks    []ScheduledTick
	FluidTicks    []ScheduledTick
	// Status is the generation status of the column. Fully generated columns
	// have the status StatusFull.
	Status string
	// LastUpdate is the world tick at which the column was saved.
	LastUpdate int64
}

// StatusFull is the status of a column that finished generating.
const StatusFull = "minecraft:full"

// BlockEntity is a block entity as stored in a column. Pos is an absolute
// block position.
type BlockEntity struct {
	Pos  cube.Pos
	Data map[string]any
}

// ScheduledTick is a scheduled block or fluid update as stored in a column.
// Delay is the amount of ticks left before the update fires, relative to the
// tick at which the column was saved.
type ScheduledTick struct {
	Pos      cube.Pos
	Block    uint32
	Delay    int64
	Priority int32
}
