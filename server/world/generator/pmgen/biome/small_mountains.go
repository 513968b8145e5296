package biome

import "github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"

type SmallMountains struct {
	grassy
}

func (SmallMountains) Populators() []populate.Populator {
	return nil
}

func (SmallMountains) Name() string {
	return "small_mountains"
}

func (SmallMountains) Elevation() (min, max int) {
	return 63, 97
}
