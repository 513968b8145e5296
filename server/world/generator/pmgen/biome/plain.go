package biome

import "github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"

type Plains struct {
	grassy
}

func (Plains) Populators() []populate.Populator {
	return []populate.Populator{populate.Bushes{Amount: 1}}
}

func (Plains) Name() string {
	return "plains"
}

func (Plains) Elevation() (min, max int) {
	return 63, 68
}
