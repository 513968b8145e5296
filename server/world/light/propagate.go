package light

import (
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// node is an entry in one of the propagation queues. For the decrease queue,
// level is the level the position had before it was zeroed. For the increase
// queue, level is the level the position was set to when it was queued, or
// the level it should be raised to if source is true.
type node struct {
	pos    cube.Pos
	level  uint8
	sky    bool
	source bool
}

type lockedChunk struct {
	c       *chunk.Chunk
	release func(written bool)
	written bool
}

// pass holds the state of a single call to Engine.Propagate. Chunks are locked
// the first time they are accessed and stay locked until release is called.
type pass struct {
	e      *Engine
	chunks map[cube.ChunkPos]*lockedChunk
	// r is the range of the first chunk accessed. All chunks share the same
	// range.
	r cube.Range

	increase []node
	decrease []node
}

func newPass(e *Engine) *pass {
	return &pass{e: e, chunks: make(map[cube.ChunkPos]*lockedChunk)}
}

func (p *pass) release() {
	for _, lc := range p.chunks {
		if lc != nil {
			lc.release(lc.written)
		}
	}
	clear(p.chunks)
}

func (p *pass) chunk(pos cube.ChunkPos) (*chunk.Chunk, bool) {
	if lc, ok := p.chunks[pos]; ok {
		if lc == nil {
			return nil, false
		}
		return lc.c, true
	}
	c, release, ok := p.e.conf.Storage.Chunk(pos)
	if !ok {
		p.chunks[pos] = nil
		return nil, false
	}
	p.chunks[pos] = &lockedChunk{c: c, release: release}
	p.r = c.Range()
	return c, true
}

// light returns the light level at a position and whether its chunk is
// loaded. Positions above the world receive full sky light.
func (p *pass) light(pos cube.Pos, sky bool) (uint8, bool) {
	c, ok := p.chunk(pos.ChunkPos())
	if !ok {
		return 0, false
	}
	x, y, z := pos.Local()
	if sky {
		return c.SkyLight(x, y, z), true
	}
	return c.BlockLight(x, y, z), true
}

func (p *pass) setLight(c *chunk.Chunk, pos cube.Pos, sky bool, level uint8) {
	x, y, z := pos.Local()
	if sky {
		if c.SkyLight(x, y, z) == level {
			return
		}
		c.SetSkyLight(x, y, z, level)
	} else {
		if c.BlockLight(x, y, z) == level {
			return
		}
		c.SetBlockLight(x, y, z, level)
	}
	if lc := p.chunks[pos.ChunkPos()]; lc != nil {
		lc.written = true
	}
}

func (p *pass) block(c *chunk.Chunk, pos cube.Pos) uint32 {
	x, y, z := pos.Local()
	return c.Block(x, y, z)
}

// seedChunk queues the initial light of a chunk that was just loaded.
func (p *pass) seedChunk(pos cube.ChunkPos, fresh bool) {
	c, ok := p.chunk(pos)
	if !ok {
		return
	}
	r := c.Range()
	base := pos.BlockPos(0)
	if fresh {
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				p.increase = append(p.increase, node{pos: cube.Pos{base[0] + x, r[1] + 1, base[2] + z}, level: 15, sky: true, source: true})
			}
		}
		for i, s := range c.Sections() {
			if !s.Blocks().Any(func(rid uint32) bool { return p.e.conf.Blocks.Emission(rid) > 0 }) {
				continue
			}
			y0 := r[0] + i<<4
			for y := 0; y < 16; y++ {
				for z := 0; z < 16; z++ {
					for x := 0; x < 16; x++ {
						if p.e.conf.Blocks.Emission(s.Blocks().At(uint8(x), uint8(y), uint8(z))) > 0 {
							p.increase = append(p.increase, node{pos: cube.Pos{base[0] + x, y0 + y, base[2] + z}, source: true})
						}
					}
				}
			}
		}
	}

	for _, o := range p.e.obligations.Drain(pos) {
		p.replay(o)
	}

	for _, face := range cube.HorizontalFaces() {
		offset := face.Offset()
		if _, ok := p.chunk(pos.Add(int32(offset[0]), int32(offset[2]))); !ok {
			continue
		}
		for i := 0; i < 16; i++ {
			var local cube.Pos
			switch face {
			case cube.FaceNorth:
				local = cube.Pos{i, 0, 0}
			case cube.FaceSouth:
				local = cube.Pos{i, 0, 15}
			case cube.FaceWest:
				local = cube.Pos{0, 0, i}
			default:
				local = cube.Pos{15, 0, i}
			}
			for y := r[0]; y <= r[1]; y++ {
				inner := cube.Pos{base[0] + local[0], y, base[2] + local[2]}
				p.reseed(inner)
				p.reseed(inner.Side(face))
			}
		}
	}
}

// reseed queues the current light at a position so that it spreads again.
func (p *pass) reseed(pos cube.Pos) {
	for _, sky := range [...]bool{false, true} {
		if l, _ := p.light(pos, sky); l > 1 {
			p.increase = append(p.increase, node{pos: pos, level: l, sky: sky})
		}
	}
}

// seedChange queues the removal of light at a changed position. The light is
// spread back in from the surroundings and the block itself afterwards.
func (p *pass) seedChange(pos cube.Pos, sky bool) {
	c, ok := p.chunk(pos.ChunkPos())
	if !ok || pos.OutOfBounds(c.Range()) {
		return
	}
	channels := []bool{false}
	if sky {
		channels = append(channels, true)
	}
	for _, sky := range channels {
		old, _ := p.light(pos, sky)
		p.setLight(c, pos, sky, 0)
		p.decrease = append(p.decrease, node{pos: pos, level: old, sky: sky})
	}
	if p.e.conf.Blocks.Emission(p.block(c, pos)) > 0 {
		p.increase = append(p.increase, node{pos: pos, source: true})
	}
}

// run drains the decrease queue and then the increase queue.
func (p *pass) run() {
	for len(p.decrease) > 0 {
		n := p.decrease[0]
		p.decrease = p.decrease[1:]
		for _, face := range cube.Faces() {
			p.decreaseInto(n.pos, n.pos.Side(face), n.level, n.sky, face == cube.FaceDown)
		}
	}
	for len(p.increase) > 0 {
		n := p.increase[0]
		p.increase = p.increase[1:]
		level, ok := p.resolve(n)
		if !ok {
			continue
		}
		for _, face := range cube.Faces() {
			p.increaseInto(n.pos, n.pos.Side(face), level, n.sky, face == cube.FaceDown)
		}
	}
	p.increase, p.decrease = nil, nil
}

// resolve returns the level an increase node spreads with, applying the
// level of source nodes. Nodes whose position no longer holds the level they
// were queued with are stale and are skipped.
func (p *pass) resolve(n node) (uint8, bool) {
	c, ok := p.chunk(n.pos.ChunkPos())
	if !ok {
		return 0, false
	}
	r := c.Range()
	if n.pos[1] < r[0] {
		return 0, false
	}
	if n.pos[1] > r[1] {
		return 15, n.sky
	}
	cur, _ := p.light(n.pos, n.sky)
	if !n.source {
		return cur, cur == n.level && cur > 0
	}
	level := n.level
	if !n.sky {
		level = p.e.conf.Blocks.Emission(p.block(c, n.pos))
	}
	if level <= cur {
		return 0, false
	}
	p.setLight(c, n.pos, n.sky, level)
	return level, true
}

// increaseInto spreads light of the level passed from a neighbour into pos.
func (p *pass) increaseInto(from, pos cube.Pos, level uint8, sky, down bool) {
	if pos.OutOfBounds(p.r) {
		return
	}
	c, ok := p.chunk(pos.ChunkPos())
	if !ok {
		p.deferUpdate(pos, from, level, sky, false)
		return
	}
	opacity := p.e.conf.Blocks.Opacity(p.block(c, pos))
	var next uint8
	if sky && down && level == 15 && opacity == 0 {
		next = 15
	} else {
		loss := max(1, opacity)
		if level <= loss {
			return
		}
		next = level - loss
	}
	if cur, _ := p.light(pos, sky); next > cur {
		p.setLight(c, pos, sky, next)
		p.increase = append(p.increase, node{pos: pos, level: next, sky: sky})
	}
}

// decreaseInto removes light from pos if it may have been spread there by a
// neighbour that used to have the level passed. Brighter positions are queued
// to spread their light again.
func (p *pass) decreaseInto(from, pos cube.Pos, level uint8, sky, down bool) {
	if pos[1] < p.r[0] {
		return
	}
	if pos[1] > p.r[1] {
		if sky {
			p.increase = append(p.increase, node{pos: pos, level: 15, sky: true, source: true})
		}
		return
	}
	c, ok := p.chunk(pos.ChunkPos())
	if !ok {
		p.deferUpdate(pos, from, level, sky, true)
		return
	}
	cur, _ := p.light(pos, sky)
	if cur == 0 {
		return
	}
	if cur < level || (sky && down && level == 15 && cur == 15) {
		p.setLight(c, pos, sky, 0)
		p.decrease = append(p.decrease, node{pos: pos, level: cur, sky: sky})
		if !sky && p.e.conf.Blocks.Emission(p.block(c, pos)) > 0 {
			p.increase = append(p.increase, node{pos: pos, source: true})
		}
		return
	}
	p.increase = append(p.increase, node{pos: pos, level: cur, sky: sky})
}

// deferUpdate records an update into an unloaded chunk so that it is replayed once
// the chunk loads. Updates into chunks that will never load are dropped.
func (p *pass) deferUpdate(pos, from cube.Pos, level uint8, sky, decrease bool) {
	if p.e.conf.Storage.Absent(pos.ChunkPos()) {
		return
	}
	p.e.obligations.Add(obligation{pos: pos, from: from, level: level, sky: sky, decrease: decrease})
}

// replay applies an update that was deferred while the chunk of its position
// was not loaded.
func (p *pass) replay(o obligation) {
	if o.decrease {
		p.decreaseInto(o.from, o.pos, o.level, o.sky, false)
		return
	}
	// The neighbour may have changed since the update was recorded, so its
	// current light is spread instead.
	if level, ok := p.light(o.from, o.sky); ok && level > 1 {
		p.increaseInto(o.from, o.pos, level, o.sky, false)
	}
}
