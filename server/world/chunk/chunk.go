package chunk

import "github.com/dm-vev/chunkengine/server/block/cube"

// Chunk is a segment in the world with a size of 16x16 blocks horizontally and
// the full height of the world's Range vertically. A Chunk holds a section for
// every 16 blocks of height. A Chunk is not safe for concurrent use.
type Chunk struct {
	r   cube.Range
	air uint32

	sections []*Section
}

// Section is a 16x16x16 part of a Chunk. It holds the block states and the
// block and sky light of every position in it.
type Section struct {
	blocks     *PalettedStorage
	blockLight LightArray
	skyLight   LightArray
}

// New initialises a new chunk filled with the air runtime ID passed, covering
// the Range r.
func New(air uint32, r cube.Range) *Chunk {
	n := r.Sections()
	c := &Chunk{r: r, air: air, sections: make([]*Section, n)}
	for i := range c.sections {
		c.sections[i] = &Section{blocks: newPalettedStorage(air)}
	}
	return c
}

// Range returns the cube.Range of the Chunk.
func (c *Chunk) Range() cube.Range {
	return c.r
}

// Sections returns all sections of the chunk, from the bottom up.
func (c *Chunk) Sections() []*Section {
	return c.sections
}

// SectionIndex returns the index of the section holding the y value passed.
func (c *Chunk) SectionIndex(y int16) int {
	return int(y-int16(c.r[0])) >> 4
}

// SectionY returns the section Y value, as stored on disk, of the section at
// the index passed.
func (c *Chunk) SectionY(index int) int8 {
	return int8(c.r[0]>>4 + index)
}

// Block returns the runtime ID of the block at the x, y and z passed. x and z
// are local to the chunk, y is absolute. Positions outside the range of the
// chunk hold air.
func (c *Chunk) Block(x uint8, y int16, z uint8) uint32 {
	s, ok := c.section(y)
	if !ok {
		return c.air
	}
	return s.blocks.At(x, uint8(y), z)
}

// SetBlock sets the runtime ID of the block at the x, y and z passed. Positions
// outside the range of the chunk are ignored.
func (c *Chunk) SetBlock(x uint8, y int16, z uint8, rid uint32) {
	s, ok := c.section(y)
	if !ok {
		return
	}
	s.blocks.Set(x, uint8(y), z, rid)
}

// BlockLight returns the block light level at the position passed.
func (c *Chunk) BlockLight(x uint8, y int16, z uint8) uint8 {
	s, ok := c.section(y)
	if !ok {
		return 0
	}
	return s.blockLight.At(x, uint8(y), z)
}

// SetBlockLight sets the block light level at the position passed.
func (c *Chunk) SetBlockLight(x uint8, y int16, z uint8, v uint8) {
	if s, ok := c.section(y); ok {
		s.blockLight.Set(x, uint8(y), z, v)
	}
}

// SkyLight returns the sky light level at the position passed. Positions above
// the chunk are fully lit by the sky.
func (c *Chunk) SkyLight(x uint8, y int16, z uint8) uint8 {
	if int(y) > c.r[1] {
		return 15
	}
	s, ok := c.section(y)
	if !ok {
		return 0
	}
	return s.skyLight.At(x, uint8(y), z)
}

// SetSkyLight sets the sky light level at the position passed.
func (c *Chunk) SetSkyLight(x uint8, y int16, z uint8, v uint8) {
	if s, ok := c.section(y); ok {
		s.skyLight.Set(x, uint8(y), z, v)
	}
}

// HighestBlock returns the y of the highest block at the x and z passed that
// satisfies the function f, or the minimum of the range minus one if none
// does.
func (c *Chunk) HighestBlock(x, z uint8, f func(rid uint32) bool) int16 {
	for i := len(c.sections) - 1; i >= 0; i-- {
		s := c.sections[i]
		if !s.blocks.Any(f) {
			continue
		}
		base := int16(c.r[0]) + int16(i<<4)
		for y := 15; y >= 0; y-- {
			if f(s.blocks.At(x, uint8(y), z)) {
				return base + int16(y)
			}
		}
	}
	return int16(c.r[0]) - 1
}

// Compact removes unused entries from the palettes of all sections.
func (c *Chunk) Compact() {
	for _, s := range c.sections {
		s.blocks.compact()
	}
}

// Clone returns a deep copy of the chunk.
func (c *Chunk) Clone() *Chunk {
	clone := &Chunk{r: c.r, air: c.air, sections: make([]*Section, len(c.sections))}
	for i, s := range c.sections {
		clone.sections[i] = &Section{blocks: s.blocks.clone(), blockLight: s.blockLight, skyLight: s.skyLight}
	}
	return clone
}

func (c *Chunk) section(y int16) (*Section, bool) {
	if int(y) < c.r[0] || int(y) > c.r[1] {
		return nil, false
	}
	return c.sections[c.SectionIndex(y)], true
}

// Blocks returns the block storage of the section.
func (s *Section) Blocks() *PalettedStorage {
	return s.blocks
}

// BlockLight returns the block light array of the section.
func (s *Section) BlockLight() *LightArray {
	return &s.blockLight
}

// SkyLight returns the sky light array of the section.
func (s *Section) SkyLight() *LightArray {
	return &s.skyLight
}
