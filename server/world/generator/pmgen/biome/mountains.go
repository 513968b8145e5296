package biome

import "github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"

type Mountains struct {
	grassy
}

func (Mountains) Populators() []populate.Populator {
	return nil
}

func (Mountains) Name() string {
	return "mountains"
}

func (Mountains) Elevation() (min, max int) {
	return 63, 127
}
