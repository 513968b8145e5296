package populate

import (
	"math"
	"math/rand/v2"

	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
	"github.com/go-gl/mathgl/mgl64"
)

// Ore places veins of a material inside of the block it replaces.
type Ore struct {
	Types []OreType
}

func (o Ore) Populate(_ world.ChunkPos, c *chunk.Chunk, r *rand.Rand) {
	for _, ore := range o.Types {
		minY, maxY := max(ore.MinHeight, c.Range().Min()), min(ore.MaxHeight, c.Range().Max())
		if minY > maxY {
			continue
		}
		material, replaces := world.BlockRuntimeID(ore.Material), world.BlockRuntimeID(ore.Replaces)
		for i := 0; i < ore.ClusterCount; i++ {
			x, y, z := r.IntN(16), minY+r.IntN(maxY-minY+1), r.IntN(16)
			if c.Block(uint8(x), int16(y), uint8(z)) == replaces {
				ore.place(c, mgl64.Vec3{float64(x), float64(y), float64(z)}, material, replaces, r)
			}
		}
	}
}

type OreType struct {
	Material, Replaces        world.Block
	ClusterCount, ClusterSize int
	MinHeight, MaxHeight      int
}

// place places a vein along a random line through the local position passed.
// Parts of the vein outside of the chunk are cut off.
func (o OreType) place(c *chunk.Chunk, vec mgl64.Vec3, material, replaces uint32, r *rand.Rand) {
	clusterSize := float64(o.ClusterSize)
	angle := r.Float64() * math.Pi
	offset := mgl64.Vec2{math.Cos(angle), math.Sin(angle)}.Mul(clusterSize / 8)
	x1, x2 := vec[0]+offset[0], vec[0]-offset[0]
	z1, z2 := vec[2]+offset[1], vec[2]-offset[1]
	y1, y2 := vec[1]+float64(r.IntN(3))-1, vec[1]+float64(r.IntN(3))-1
	for i := float64(0); i <= clusterSize; i++ {
		seedX := x1 + (x2-x1)*i/clusterSize
		seedY := y1 + (y2-y1)*i/clusterSize
		seedZ := z1 + (z2-z1)*i/clusterSize
		size := ((math.Sin(i*(math.Pi/clusterSize))+1)*r.Float64()*clusterSize/16 + 1) / 2

		startX, endX := math.Floor(seedX-size), math.Floor(seedX+size)
		startY, endY := math.Floor(seedY-size), math.Floor(seedY+size)
		startZ, endZ := math.Floor(seedZ-size), math.Floor(seedZ+size)

		for xx := startX; xx <= endX; xx++ {
			sizeX := (xx + 0.5 - seedX) / size
			sizeX *= sizeX
			if sizeX >= 1 {
				continue
			}
			for yy := startY; yy <= endY; yy++ {
				sizeY := (yy + 0.5 - seedY) / size
				sizeY *= sizeY
				if sizeX+sizeY >= 1 {
					continue
				}
				for zz := startZ; zz <= endZ; zz++ {
					sizeZ := (zz + 0.5 - seedZ) / size
					sizeZ *= sizeZ

					x, y, z := int(xx), int(yy), int(zz)
					if sizeX+sizeY+sizeZ >= 1 || !inChunk(x, z) || y < c.Range().Min() || y > c.Range().Max() {
						continue
					}
					if c.Block(uint8(x), int16(y), uint8(z)) == replaces {
						c.SetBlock(uint8(x), int16(y), uint8(z), material)
					}
				}
			}
		}
	}
}
