package populate

import (
	"math/rand/v2"

	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// Bushes places small clusters of leaves on grass.
type Bushes struct {
	Amount int
}

func (b Bushes) Populate(_ world.ChunkPos, c *chunk.Chunk, r *rand.Rand) {
	var (
		grass  = world.BlockRuntimeID(block.Grass{})
		leaves = world.BlockRuntimeID(block.Leaves{})
		air    = world.AirRuntimeID()
	)
	amount := r.IntN(2) + b.Amount
	for i := 0; i < amount; i++ {
		x, z := 2+r.IntN(12), 2+r.IntN(12)
		y := int(c.HighestBlock(uint8(x), uint8(z), func(rid uint32) bool { return rid != air }))
		if y < c.Range().Min() || y+3 > c.Range().Max() {
			continue
		}
		if c.Block(uint8(x), int16(y), uint8(z)) != grass {
			continue
		}
		radius := 1 + r.IntN(2)
		for dy := 1; dy <= 2; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				for dz := -radius; dz <= radius; dz++ {
					if abs(dx) == radius && abs(dz) == radius && (dy == 2 || r.IntN(2) == 0) {
						continue
					}
					if !inChunk(x+dx, z+dz) || c.Block(uint8(x+dx), int16(y+dy), uint8(z+dz)) != air {
						continue
					}
					set(c, x+dx, y+dy, z+dz, leaves)
				}
			}
			radius = max(radius-1, 1)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
