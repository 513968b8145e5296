package biome

import "github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"

type Forest struct {
	grassy
}

func (Forest) Populators() []populate.Populator {
	return []populate.Populator{populate.Bushes{Amount: 6}}
}

func (Forest) Name() string {
	return "forest"
}

func (Forest) Elevation() (min, max int) {
	return 63, 81
}
