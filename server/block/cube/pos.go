package cube

import "fmt"

// Pos holds the position of a block. The position is represented as an array
// with an x, y and z value, where the y value is positive.
type Pos [3]int

// String converts the Pos to a string in the format (1,2,3) and returns it.
func (p Pos) String() string {
	return fmt.Sprintf("(%v,%v,%v)", p[0], p[1], p[2])
}

// X returns the X coordinate of the block position.
func (p Pos) X() int {
	return p[0]
}

// Y returns the Y coordinate of the block position.
func (p Pos) Y() int {
	return p[1]
}

// Z returns the Z coordinate of the block position.
func (p Pos) Z() int {
	return p[2]
}

// Add adds two block positions together and returns a new one with the
// combined values.
func (p Pos) Add(pos Pos) Pos {
	return Pos{p[0] + pos[0], p[1] + pos[1], p[2] + pos[2]}
}

// OutOfBounds checks if the Y value is either bigger than r[1] or smaller than
// r[0].
func (p Pos) OutOfBounds(r Range) bool {
	y := p[1]
	return y > r[1] || y < r[0]
}

// Side returns the position on the side of this block position, at a specific
// face.
func (p Pos) Side(face Face) Pos {
	return p.Add(face.Offset())
}

// Neighbours calls the function passed for each of the block position's
// neighbours. If the Y value is out of bounds, the function will not be called
// for that position.
func (p Pos) Neighbours(f func(neighbour Pos), r Range) {
	for _, face := range Faces() {
		if n := p.Side(face); !n.OutOfBounds(r) {
			f(n)
		}
	}
}

// ChunkPos returns the position of the chunk that the block position is in.
func (p Pos) ChunkPos() ChunkPos {
	return ChunkPos{int32(p[0] >> 4), int32(p[2] >> 4)}
}

// Local returns the x, y and z coordinates of the position relative to the
// chunk it is in. The y value is left untouched.
func (p Pos) Local() (x uint8, y int16, z uint8) {
	return uint8(p[0] & 15), int16(p[1]), uint8(p[2] & 15)
}
