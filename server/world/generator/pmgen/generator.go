// Package pmgen generates terrain from layered noise. Biomes decide the
// elevation and ground cover of an area, and the elevation of neighbouring
// biomes is smoothed with a gaussian kernel so that they blend into each
// other.
package pmgen

import (
	"math/rand/v2"

	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
	"github.com/dm-vev/chunkengine/server/world/generator/pmgen/biome"
	"github.com/dm-vev/chunkengine/server/world/generator/pmgen/populate"
)

const (
	// SmoothSize is the radius of the kernel that smooths biome elevation.
	SmoothSize = 2
	// WaterHeight is the level up to which empty terrain is filled with
	// water.
	WaterHeight = 62
	// terrainHeight is the height of the noise volume sampled for terrain.
	terrainHeight = 128
)

var gaussianKernel = [5][5]float64{
	{
		1.4715177646858,
		2.141045714076,
		2.4261226388505,
		2.141045714076,
		1.4715177646858,
	},
	{
		2.141045714076,
		3.1152031322856,
		3.5299876103384,
		3.1152031322856,
		2.141045714076,
	},
	{
		2.4261226388505,
		3.5299876103384,
		4,
		3.5299876103384,
		2.4261226388505,
	},
	{
		2.141045714076,
		3.1152031322856,
		3.5299876103384,
		3.1152031322856,
		2.141045714076,
	},
	{
		1.4715177646858,
		2.141045714076,
		2.4261226388505,
		2.141045714076,
		1.4715177646858,
	},
}

// Generator generates overworld terrain. A Generator is safe for concurrent
// use. Its output only depends on the seed and the chunk position.
type Generator struct {
	seed       uint64
	noise      *noise
	selector   *biomeSelector
	populators []populate.Populator

	bedrock, stone, water, air uint32
}

// New creates a Generator with the seed passed. The populators passed run on
// every column after the populators of its biome.
func New(seed uint64, populators ...populate.Populator) *Generator {
	return &Generator{
		seed:       seed,
		noise:      newNoise(seed, 4, 1.0/4, 1.0/32),
		selector:   newBiomeSelector(seed),
		populators: populators,
		bedrock:    world.BlockRuntimeID(block.Bedrock{}),
		stone:      world.BlockRuntimeID(block.Stone{}),
		water:      world.BlockRuntimeID(block.Water{Depth: 8}),
		air:        world.AirRuntimeID(),
	}
}

// Seed returns the seed of the Generator.
func (g *Generator) Seed() uint64 {
	return g.seed
}

// GenerateChunk generates the terrain of the chunk at the position passed.
// Terrain is generated between y=0 and y=127. Below that the chunk is filled
// with stone. The lowest layer of the chunk is bedrock.
func (g *Generator) GenerateChunk(pos world.ChunkPos, c *chunk.Chunk) error {
	r := rand.New(rand.NewPCG(g.seed^0xdeadbeef, pos.Pack()))
	noise := g.noise.fastNoise3D(16, terrainHeight, 16, 4, 8, 4, int64(pos[0])*16, 0, int64(pos[1])*16)

	minY, maxY := c.Range().Min(), c.Range().Max()
	var (
		biomeCache = make(map[[2]int64]biome.Biome)
		biomeCols  [16][16]biome.Biome
	)
	for x := int64(0); x < 16; x++ {
		for z := int64(0); z < 16; z++ {
			var minSum, maxSum, weightSum float64

			b := g.pickBiome(int64(pos[0])*16+x, int64(pos[1])*16+z)
			biomeCols[x][z] = b

			for sx := int64(-SmoothSize); sx <= SmoothSize; sx++ {
				for sz := int64(-SmoothSize); sz <= SmoothSize; sz++ {
					weight := gaussianKernel[sx+SmoothSize][sz+SmoothSize]

					var adjacent biome.Biome
					if sx == 0 && sz == 0 {
						adjacent = b
					} else {
						i := [2]int64{int64(pos[0])*16 + x + sx, int64(pos[1])*16 + z + sz}
						if bc, ok := biomeCache[i]; ok {
							adjacent = bc
						} else {
							adjacent = g.pickBiome(i[0], i[1])
							biomeCache[i] = adjacent
						}
					}

					lo, hi := adjacent.Elevation()
					minSum += float64(lo-1) * weight
					maxSum += float64(hi) * weight

					weightSum += weight
				}
			}

			minSum /= weightSum
			maxSum /= weightSum

			smoothHeight := (maxSum - minSum) / 2

			for y := minY; y <= maxY; y++ {
				switch {
				case y == minY:
					c.SetBlock(uint8(x), int16(y), uint8(z), g.bedrock)
				case y < 0:
					c.SetBlock(uint8(x), int16(y), uint8(z), g.stone)
				case y < terrainHeight:
					noiseValue := noise.at(int(x), y, int(z)) - 1.0/smoothHeight*(float64(y)-smoothHeight-minSum)
					if noiseValue > 0 {
						c.SetBlock(uint8(x), int16(y), uint8(z), g.stone)
					} else if y <= WaterHeight {
						c.SetBlock(uint8(x), int16(y), uint8(z), g.water)
					}
				}
			}
		}
	}

	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			g.coverGround(c, x, z, biomeCols[x][z])
		}
	}

	centre := biomeCols[7][7]
	for _, p := range append(centre.Populators(), g.populators...) {
		p.Populate(pos, c, r)
	}
	return nil
}

// coverGround replaces the top of the stone at the x and z passed with the
// ground cover of the biome.
func (g *Generator) coverGround(c *chunk.Chunk, x, z uint8, b biome.Biome) {
	cover := b.GroundCover()
	if len(cover) == 0 {
		return
	}
	top := c.HighestBlock(x, z, func(rid uint32) bool { return rid != g.air && rid != g.water })
	for i, coverBlock := range cover {
		y := top - int16(i)
		if int(y) <= c.Range().Min() || c.Block(x, y, z) != g.stone {
			break
		}
		c.SetBlock(x, y, z, world.BlockRuntimeID(coverBlock))
	}
}

// Biome returns the biome at the block x and z passed.
func (g *Generator) Biome(x, z int64) biome.Biome {
	return g.pickBiome(x, z)
}

// pickBiome returns the biome at the x and z passed, slightly offsetting the
// position so that biome borders are not straight.
func (g *Generator) pickBiome(x, z int64) biome.Biome {
	hash := x*2345803 ^ z*9236449 ^ int64(g.seed)
	hash *= hash + 223
	xNoise := hash >> 20 & 3
	zNoise := hash >> 22 & 3
	if xNoise == 3 {
		xNoise = 1
	}
	if zNoise == 3 {
		zNoise = 1
	}

	return g.selector.pickBiome(x+xNoise-1, z+zNoise-1)
}
