// Package biome holds the biomes that shape terrain generated by pmgen.
package biome

import (
	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"
)

// Biome describes the terrain of an area of the world.
type Biome interface {
	// Name returns the name of the biome, as saved with generated columns.
	Name() string
	// Elevation returns the lowest and highest surface level of the biome.
	Elevation() (min, max int)
	// GroundCover returns the blocks placed on top of the stone of the
	// biome, from the surface down.
	GroundCover() []world.Block
	// Populators returns the populators run on every column whose centre is
	// in the biome.
	Populators() []populate.Populator
}

// grassy is embedded by biomes covered with grass.
type grassy struct{}

func (grassy) GroundCover() []world.Block {
	return []world.Block{
		block.Grass{},
		block.Dirt{},
		block.Dirt{},
		block.Dirt{},
	}
}
