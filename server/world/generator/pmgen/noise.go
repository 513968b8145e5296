package pmgen

import (
	"math"

	"github.com/segmentio/fasthash/fnv1a"
)

// noise is fractal value noise. Lattice values are derived from a hash of the
// seed and the lattice position, so the noise only depends on the seed.
type noise struct {
	seed        uint64
	octaves     int
	persistence float64
	expansion   float64
}

func newNoise(seed uint64, octaves int, persistence, expansion float64) *noise {
	return &noise{seed: seed, octaves: octaves, persistence: persistence, expansion: expansion}
}

// lattice returns the value in the range [-1, 1] at a lattice point of an
// octave.
func (n *noise) lattice(octave int, x, y, z int64) float64 {
	h := fnv1a.AddUint64(fnv1a.HashUint64(n.seed), uint64(octave))
	h = fnv1a.AddUint64(h, uint64(x))
	h = fnv1a.AddUint64(h, uint64(y))
	h = fnv1a.AddUint64(h, uint64(z))
	h ^= h >> 29
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 32
	return float64(h>>11)/float64(1<<52) - 1
}

// octave returns the smoothly interpolated value noise of a single octave.
func (n *noise) octave(o int, x, y, z float64) float64 {
	fx, fy, fz := math.Floor(x), math.Floor(y), math.Floor(z)
	x0, y0, z0 := int64(fx), int64(fy), int64(fz)
	tx, ty, tz := fade(x-fx), fade(y-fy), fade(z-fz)

	c000 := n.lattice(o, x0, y0, z0)
	c100 := n.lattice(o, x0+1, y0, z0)
	c010 := n.lattice(o, x0, y0+1, z0)
	c110 := n.lattice(o, x0+1, y0+1, z0)
	c001 := n.lattice(o, x0, y0, z0+1)
	c101 := n.lattice(o, x0+1, y0, z0+1)
	c011 := n.lattice(o, x0, y0+1, z0+1)
	c111 := n.lattice(o, x0+1, y0+1, z0+1)

	return lerp(tz,
		lerp(ty, lerp(tx, c000, c100), lerp(tx, c010, c110)),
		lerp(ty, lerp(tx, c001, c101), lerp(tx, c011, c111)),
	)
}

// noise3D returns the sum of all octaves at the position passed, normalised
// to the range [-1, 1].
func (n *noise) noise3D(x, y, z float64) float64 {
	var result, amp, maxAmp float64 = 0, 1, 0
	freq := n.expansion
	for o := 0; o < n.octaves; o++ {
		result += n.octave(o, x*freq, y*freq, z*freq) * amp
		maxAmp += amp
		freq *= 2
		amp *= n.persistence
	}
	return result / maxAmp
}

// noise2D returns the noise at the x and z passed.
func (n *noise) noise2D(x, z float64) float64 {
	return n.noise3D(x, 0, z)
}

// grid holds noise sampled over a volume of blocks.
type grid struct {
	xSize, ySize, zSize int
	values              []float64
}

func (g grid) at(x, y, z int) float64 {
	return g.values[(x*g.zSize+z)*g.ySize+y]
}

func (g grid) set(x, y, z int, v float64) {
	g.values[(x*g.zSize+z)*g.ySize+y] = v
}

// fastNoise3D samples the noise every xRate, yRate and zRate blocks in a
// volume of the size passed starting at x, y and z, and fills the positions
// between the samples with trilinear interpolation. The sizes must be
// multiples of their rates.
func (n *noise) fastNoise3D(xSize, ySize, zSize, xRate, yRate, zRate int, x, y, z int64) grid {
	g := grid{xSize: xSize + 1, ySize: ySize + 1, zSize: zSize + 1}
	g.values = make([]float64, g.xSize*g.ySize*g.zSize)

	for xx := 0; xx <= xSize; xx += xRate {
		for zz := 0; zz <= zSize; zz += zRate {
			for yy := 0; yy <= ySize; yy += yRate {
				g.set(xx, yy, zz, n.noise3D(float64(x+int64(xx)), float64(y+int64(yy)), float64(z+int64(zz))))
			}
		}
	}
	for xx := 0; xx < xSize; xx++ {
		nx := xx / xRate * xRate
		nnx := nx + xRate
		dx1 := float64(nnx-xx) / float64(nnx-nx)
		dx2 := float64(xx-nx) / float64(nnx-nx)
		for zz := 0; zz < zSize; zz++ {
			nz := zz / zRate * zRate
			nnz := nz + zRate
			dz1 := float64(nnz-zz) / float64(nnz-nz)
			dz2 := float64(zz-nz) / float64(nnz-nz)
			for yy := 0; yy < ySize; yy++ {
				if xx%xRate == 0 && zz%zRate == 0 && yy%yRate == 0 {
					continue
				}
				ny := yy / yRate * yRate
				nny := ny + yRate
				dy1 := float64(nny-yy) / float64(nny-ny)
				dy2 := float64(yy-ny) / float64(nny-ny)

				g.set(xx, yy, zz, dz1*(
					dy1*(dx1*g.at(nx, ny, nz)+dx2*g.at(nnx, ny, nz))+
						dy2*(dx1*g.at(nx, nny, nz)+dx2*g.at(nnx, nny, nz)))+
					dz2*(
						dy1*(dx1*g.at(nx, ny, nnz)+dx2*g.at(nnx, ny, nnz))+
							dy2*(dx1*g.at(nx, nny, nnz)+dx2*g.at(nnx, nny, nnz))))
			}
		}
	}
	return g
}

func fade(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}
