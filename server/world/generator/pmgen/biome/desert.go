package biome

import (
	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"
)

type Desert struct{}

func (Desert) Populators() []populate.Populator {
	return nil
}

func (Desert) Name() string {
	return "desert"
}

func (Desert) Elevation() (min, max int) {
	return 63, 74
}

func (Desert) GroundCover() []world.Block {
	return []world.Block{
		block.Sand{},
		block.Sand{},
		block.Sand{},
		block.Sand{},
		block.Sand{},
	}
}
