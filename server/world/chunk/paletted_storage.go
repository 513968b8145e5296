package chunk

import (
	"fmt"
	"math/bits"
)

// PalettedStorage holds the block states of a 16x16x16 section. Every value is
// stored as an index into a palette of runtime IDs. Indices are packed into
// 64-bit words without spanning across two words, so that a word holds
// 64/bitsPerIndex indices.
type PalettedStorage struct {
	bitsPerIndex int
	palette      []uint32
	data         []uint64
}

// newPalettedStorage returns a PalettedStorage filled with a single value.
func newPalettedStorage(v uint32) *PalettedStorage {
	return &PalettedStorage{palette: []uint32{v}}
}

// newPalettedStorageFrom returns a PalettedStorage using the palette and packed
// words passed. An error is returned if the amount of words does not match the
// size of the palette.
func newPalettedStorageFrom(palette []uint32, data []uint64) (*PalettedStorage, error) {
	if len(palette) == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrMalformed)
	}
	b := bitsFor(len(palette))
	if want := wordsFor(b); len(data) != want {
		return nil, fmt.Errorf("%w: palette of %d entries needs %d words, got %d", ErrMalformed, len(palette), want, len(data))
	}
	s := &PalettedStorage{bitsPerIndex: b, palette: palette, data: data}
	if b == 0 {
		s.data = nil
		return s, nil
	}
	for i := 0; i < 4096; i++ {
		if s.index(i) >= uint32(len(palette)) {
			return nil, fmt.Errorf("%w: palette index out of range at %d", ErrMalformed, i)
		}
	}
	return s, nil
}

// At returns the value stored at the local x, y and z passed.
func (s *PalettedStorage) At(x, y, z uint8) uint32 {
	return s.palette[s.index(offset(x, y, z))]
}

// Set sets the value at the local x, y and z passed, growing the palette if
// the value was not yet present in it.
func (s *PalettedStorage) Set(x, y, z uint8, v uint32) {
	i := offset(x, y, z)
	idx, ok := s.paletteIndex(v)
	if !ok {
		s.palette = append(s.palette, v)
		idx = uint32(len(s.palette) - 1)
		if b := bitsFor(len(s.palette)); b != s.bitsPerIndex {
			s.resize(b)
		}
	}
	s.setIndex(i, idx)
}

// Palette returns the palette of the storage. The returned slice must not be
// modified.
func (s *PalettedStorage) Palette() []uint32 {
	return s.palette
}

// Words returns the packed indices of the storage. The returned slice must not
// be modified.
func (s *PalettedStorage) Words() []uint64 {
	return s.data
}

// Any checks if any value in the palette satisfies the function passed. Values
// that are in the palette but no longer used may be reported too.
func (s *PalettedStorage) Any(f func(v uint32) bool) bool {
	for _, v := range s.palette {
		if f(v) {
			return true
		}
	}
	return false
}

// Uniform reports if the storage holds the single value v at every position.
func (s *PalettedStorage) Uniform(v uint32) bool {
	return len(s.palette) == 1 && s.palette[0] == v
}

// compact removes values from the palette that are no longer used.
func (s *PalettedStorage) compact() {
	if s.bitsPerIndex == 0 {
		return
	}
	used := make([]bool, len(s.palette))
	for i := 0; i < 4096; i++ {
		used[s.index(i)] = true
	}
	remap := make([]uint32, len(s.palette))
	palette := make([]uint32, 0, len(s.palette))
	for i, ok := range used {
		if ok {
			remap[i] = uint32(len(palette))
			palette = append(palette, s.palette[i])
		}
	}
	if len(palette) == len(s.palette) {
		return
	}
	indices := make([]uint32, 4096)
	for i := range indices {
		indices[i] = remap[s.index(i)]
	}
	s.palette = palette
	s.bitsPerIndex = bitsFor(len(palette))
	s.data = make([]uint64, wordsFor(s.bitsPerIndex))
	if s.bitsPerIndex == 0 {
		s.data = nil
		return
	}
	for i, idx := range indices {
		s.setIndex(i, idx)
	}
}

func (s *PalettedStorage) resize(b int) {
	indices := make([]uint32, 4096)
	for i := range indices {
		indices[i] = s.index(i)
	}
	s.bitsPerIndex = b
	s.data = make([]uint64, wordsFor(b))
	for i, idx := range indices {
		s.setIndex(i, idx)
	}
}

func (s *PalettedStorage) paletteIndex(v uint32) (uint32, bool) {
	for i, pv := range s.palette {
		if pv == v {
			return uint32(i), true
		}
	}
	return 0, false
}

func (s *PalettedStorage) index(i int) uint32 {
	if s.bitsPerIndex == 0 {
		return 0
	}
	perWord := 64 / s.bitsPerIndex
	word := s.data[i/perWord]
	return uint32(word>>((i%perWord)*s.bitsPerIndex)) & (1<<s.bitsPerIndex - 1)
}

func (s *PalettedStorage) setIndex(i int, idx uint32) {
	if s.bitsPerIndex == 0 {
		return
	}
	perWord := 64 / s.bitsPerIndex
	shift := (i % perWord) * s.bitsPerIndex
	mask := uint64(1<<s.bitsPerIndex-1) << shift
	w := &s.data[i/perWord]
	*w = *w&^mask | uint64(idx)<<shift&mask
}

func (s *PalettedStorage) clone() *PalettedStorage {
	return &PalettedStorage{
		bitsPerIndex: s.bitsPerIndex,
		palette:      append([]uint32(nil), s.palette...),
		data:         append([]uint64(nil), s.data...),
	}
}

// bitsFor returns the amount of bits used per index for a palette of the size
// passed. A single value needs no indices at all, anything else uses at least
// 4 bits per index.
func bitsFor(paletteSize int) int {
	if paletteSize <= 1 {
		return 0
	}
	return max(4, bits.Len(uint(paletteSize-1)))
}

func wordsFor(bitsPerIndex int) int {
	if bitsPerIndex == 0 {
		return 0
	}
	perWord := 64 / bitsPerIndex
	return (4096 + perWord - 1) / perWord
}

// offset returns the index of a position within a section: y, then z, then x.
func offset(x, y, z uint8) int {
	return int(y&15)<<8 | int(z&15)<<4 | int(x&15)
}
