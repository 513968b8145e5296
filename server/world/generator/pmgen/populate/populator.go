// Package populate places features in columns after their terrain was
// generated. Populators only write to the column they are passed.
package populate

import (
	"math/rand/v2"

	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

type Populator interface {
	Populate(pos world.ChunkPos, c *chunk.Chunk, r *rand.Rand)
}

// inChunk reports if the local x and z passed lie within a chunk.
func inChunk(x, z int) bool {
	return x >= 0 && x < 16 && z >= 0 && z < 16
}

// set sets the block at the local position passed if it lies within the
// chunk.
func set(c *chunk.Chunk, x, y, z int, rid uint32) {
	if !inChunk(x, z) || y < c.Range().Min() || y > c.Range().Max() {
		return
	}
	c.SetBlock(uint8(x), int16(y), uint8(z), rid)
}
