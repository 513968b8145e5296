package pmgen

import (
	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"
)

// NewOverworld creates a Generator with the seed passed that also places
// pockets of dirt, sand and glowstone in the stone of every column.
func NewOverworld(seed uint64) *Generator {
	return New(seed, populate.Ore{Types: []populate.OreType{
		{Material: block.Dirt{}, Replaces: block.Stone{}, ClusterCount: 20, ClusterSize: 32, MinHeight: 0, MaxHeight: 128},
		{Material: block.Sand{}, Replaces: block.Stone{}, ClusterCount: 10, ClusterSize: 16, MinHeight: 0, MaxHeight: 64},
		{Material: block.Glowstone{}, Replaces: block.Stone{}, ClusterCount: 2, ClusterSize: 8, MinHeight: -64, MaxHeight: 16},
	}})
}
