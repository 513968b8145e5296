package biome

import (
	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"
)

type Ocean struct{}

func (Ocean) Populators() []populate.Populator {
	return nil
}

func (Ocean) Name() string {
	return "ocean"
}

func (Ocean) Elevation() (min, max int) {
	return 46, 58
}

func (Ocean) GroundCover() []world.Block {
	return []world.Block{
		block.Sand{},
		block.Sand{},
		block.Sand{},
		block.Sand{},
		block.Sand{},
	}
}
