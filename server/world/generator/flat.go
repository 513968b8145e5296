// Package generator holds simple world.Generator implementations.
package generator

import (
	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// Flat is the flat generator of World. It generates flat worlds (like those
// in vanilla) with no other decoration. The layers of the world start at the
// bottom of the world.
type Flat struct {
	n      int16
	layers []uint32
}

// NewFlat creates a new Flat generator. Chunks generated are filled with the
// layers passed, from the bottom of the world up.
func NewFlat(layers []world.Block) Flat {
	f := Flat{n: int16(len(layers)), layers: make([]uint32, len(layers))}
	for i, b := range layers {
		f.layers[i] = world.BlockRuntimeID(b)
	}
	return f
}

// DefaultFlat returns a Flat generator with a layer of bedrock, two layers of
// dirt and a layer of grass.
func DefaultFlat() Flat {
	return NewFlat([]world.Block{block.Bedrock{}, block.Dirt{}, block.Dirt{}, block.Grass{}})
}

// GenerateChunk ...
func (f Flat) GenerateChunk(_ world.ChunkPos, c *chunk.Chunk) error {
	min := int16(c.Range().Min())
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			for y := int16(0); y < f.n; y++ {
				c.SetBlock(x, min+y, z, f.layers[y])
			}
		}
	}
	return nil
}

// Surface returns the y of the highest layer in a world with the range passed.
func (f Flat) Surface(min int) int {
	return min + int(f.n) - 1
}
