package biome

import (
	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"
)

type River struct{}

func (River) Populators() []populate.Populator {
	return nil
}

func (River) Name() string {
	return "river"
}

func (River) Elevation() (min, max int) {
	return 58, 62
}

func (River) GroundCover() []world.Block {
	return []world.Block{
		block.Dirt{},
		block.Dirt{},
		block.Dirt{},
		block.Dirt{},
		block.Dirt{},
	}
}
