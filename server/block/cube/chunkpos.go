package cube

import (
	"fmt"
	"slices"

	"golang.org/x/exp/constraints"
)

// ChunkPos holds the position of a chunk. The type is provided as a utility
// struct for keeping track of a chunk's position. Chunks do not themselves
// keep track of that. Chunk positions are different from block positions in
// the way that increasing the X/Z by one means increasing the absolute value
// on the X/Z axis in terms of blocks by 16.
type ChunkPos [2]int32

// String implements fmt.Stringer and returns (x, z).
func (p ChunkPos) String() string {
	return fmt.Sprintf("(%v, %v)", p[0], p[1])
}

// X returns the X coordinate of the chunk position.
func (p ChunkPos) X() int32 {
	return p[0]
}

// Z returns the Z coordinate of the chunk position.
func (p ChunkPos) Z() int32 {
	return p[1]
}

// Pack packs the chunk position into a single 64-bit key. The X coordinate
// occupies the low 32 bits and the Z coordinate the high 32 bits, so every
// ChunkPos maps to exactly one key and back.
func (p ChunkPos) Pack() uint64 {
	return uint64(uint32(p[0])) | uint64(uint32(p[1]))<<32
}

// UnpackChunkPos returns the ChunkPos that was packed into the key passed
// using ChunkPos.Pack.
func UnpackChunkPos(key uint64) ChunkPos {
	return ChunkPos{int32(uint32(key)), int32(uint32(key >> 32))}
}

// Add returns the chunk position offset by x and z.
func (p ChunkPos) Add(x, z int32) ChunkPos {
	return ChunkPos{p[0] + x, p[1] + z}
}

// Chebyshev returns the Chebyshev distance between two chunk positions: the
// largest of the distances on the X and Z axes.
func Chebyshev(a, b ChunkPos) int {
	return max(abs(int64(a[0])-int64(b[0])), abs(int64(a[1])-int64(b[1])))
}

// Region returns the position of the 32x32 region that the chunk is in.
func (p ChunkPos) Region() (x, z int32) {
	return p[0] >> 5, p[1] >> 5
}

// InRegion returns the position of the chunk within its region, with both
// values in the range [0, 32).
func (p ChunkPos) InRegion() (x, z int) {
	return int(p[0] & 31), int(p[1] & 31)
}

// BlockPos returns the block position of the chunk's corner at the y passed.
func (p ChunkPos) BlockPos(y int) Pos {
	return Pos{int(p[0]) << 4, y, int(p[1]) << 4}
}

// Morton returns a deterministic ordering value for the chunk position. Chunk
// positions close to each other in space have close Morton values.
func (p ChunkPos) Morton() uint64 {
	return splitBy1(toUnsigned(p[0])) | splitBy1(toUnsigned(p[1]))<<1
}

// Cylinder returns all chunk positions within the radius passed around the
// centre, ordered so that the closest positions come first. Positions at an
// equal distance are ordered by their X and then Z coordinate.
func Cylinder(centre ChunkPos, radius int) []ChunkPos {
	if radius < 0 {
		return nil
	}
	r := int32(radius)
	positions := make([]ChunkPos, 0, (2*radius+1)*(2*radius+1))
	for x := -r; x <= r; x++ {
		for z := -r; z <= r; z++ {
			if x*x+z*z > r*r {
				continue
			}
			positions = append(positions, ChunkPos{centre[0] + x, centre[1] + z})
		}
	}
	slices.SortFunc(positions, func(a, b ChunkPos) int {
		da, db := distSq(centre, a), distSq(centre, b)
		switch {
		case da != db:
			return cmpInt(da, db)
		case a[0] != b[0]:
			return cmpInt(a[0], b[0])
		default:
			return cmpInt(a[1], b[1])
		}
	})
	return positions
}

// WithinRadius checks if pos is within the cylinder of the radius passed
// around the centre, matching the positions returned by Cylinder.
func WithinRadius(centre, pos ChunkPos, radius int) bool {
	return distSq(centre, pos) <= int64(radius)*int64(radius)
}

func distSq(a, b ChunkPos) int64 {
	dx, dz := int64(a[0])-int64(b[0]), int64(a[1])-int64(b[1])
	return dx*dx + dz*dz
}

func abs[T constraints.Signed](v T) int {
	if v < 0 {
		return int(-v)
	}
	return int(v)
}

func cmpInt[T constraints.Integer](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toUnsigned(v int32) uint32 {
	return uint32(v) ^ (1 << 31)
}

func splitBy1(x uint32) uint64 {
	x64 := uint64(x)
	x64 = (x64 | x64<<16) & 0x0000FFFF0000FFFF
	x64 = (x64 | x64<<8) & 0x00FF00FF00FF00FF
	x64 = (x64 | x64<<4) & 0x0F0F0F0F0F0F0F0F
	x64 = (x64 | x64<<2) & 0x3333333333333333
	x64 = (x64 | x64<<1) & 0x5555555555555555
	return x64
}
