package light

import (
	"math/rand/v2"
	"testing"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

const (
	air uint32 = iota
	stone
	glowstone
	torch
	glass
	leaves
)

var testRange = cube.Range{0, 31}

type testBlocks struct{}

func (testBlocks) Opacity(rid uint32) uint8 {
	switch rid {
	case stone, glowstone:
		return 15
	case leaves:
		return 1
	}
	return 0
}

func (testBlocks) Emission(rid uint32) uint8 {
	switch rid {
	case glowstone:
		return 15
	case torch:
		return 14
	}
	return 0
}

type testStorage struct {
	chunks map[cube.ChunkPos]*chunk.Chunk
	absent func(cube.ChunkPos) bool
	locked int
	// written holds the chunks released with changed light.
	written map[cube.ChunkPos]bool
}

func newTestStorage() *testStorage {
	return &testStorage{chunks: make(map[cube.ChunkPos]*chunk.Chunk), written: make(map[cube.ChunkPos]bool)}
}

func (s *testStorage) Chunk(pos cube.ChunkPos) (*chunk.Chunk, func(bool), bool) {
	c, ok := s.chunks[pos]
	if !ok {
		return nil, nil, false
	}
	s.locked++
	return c, func(written bool) {
		s.locked--
		if written {
			s.written[pos] = true
		}
	}, true
}

func (s *testStorage) Absent(pos cube.ChunkPos) bool {
	return s.absent != nil && s.absent(pos)
}

func (s *testStorage) set(pos cube.Pos, rid uint32) {
	x, y, z := pos.Local()
	s.chunks[pos.ChunkPos()].SetBlock(x, y, z, rid)
}

func (s *testStorage) block(pos cube.Pos) uint32 {
	c, ok := s.chunks[pos.ChunkPos()]
	if !ok {
		return air
	}
	x, y, z := pos.Local()
	return c.Block(x, y, z)
}

func (s *testStorage) light(pos cube.Pos, sky bool) uint8 {
	c, ok := s.chunks[pos.ChunkPos()]
	if !ok {
		return 0
	}
	x, y, z := pos.Local()
	if sky {
		return c.SkyLight(x, y, z)
	}
	return c.BlockLight(x, y, z)
}

// forEach calls f for every position in every chunk held by the storage.
func (s *testStorage) forEach(f func(pos cube.Pos)) {
	for cp := range s.chunks {
		base := cp.BlockPos(0)
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				for y := testRange[0]; y <= testRange[1]; y++ {
					f(cube.Pos{base[0] + x, y, base[2] + z})
				}
			}
		}
	}
}

// reference computes the light of every position by iterating the light
// equations until nothing changes anymore.
func (s *testStorage) reference() (block, sky map[cube.Pos]uint8) {
	block, sky = make(map[cube.Pos]uint8), make(map[cube.Pos]uint8)
	get := func(m map[cube.Pos]uint8, pos cube.Pos, isSky bool) uint8 {
		if isSky && pos[1] > testRange[1] {
			return 15
		}
		return m[pos]
	}
	var b testBlocks
	for changed := true; changed; {
		changed = false
		s.forEach(func(pos cube.Pos) {
			rid := s.block(pos)
			loss := max(1, b.Opacity(rid))
			bl, sl := b.Emission(rid), uint8(0)
			if b.Opacity(rid) == 0 && get(sky, pos.Side(cube.FaceUp), true) == 15 {
				sl = 15
			}
			for _, face := range cube.Faces() {
				n := pos.Side(face)
				if _, ok := s.chunks[n.ChunkPos()]; !ok || n[1] < testRange[0] {
					continue
				}
				if l := get(block, n, false); l > loss {
					bl = max(bl, l-loss)
				}
				if l := get(sky, n, true); l > loss {
					sl = max(sl, l-loss)
				}
			}
			if bl != block[pos] || sl != sky[pos] {
				block[pos], sky[pos] = bl, sl
				changed = true
			}
		})
	}
	return block, sky
}

func (s *testStorage) checkReference(t *testing.T) {
	t.Helper()
	block, sky := s.reference()
	s.forEach(func(pos cube.Pos) {
		if got, want := s.light(pos, false), block[pos]; got != want {
			t.Fatalf("expected block light %d at %v, got %d", want, pos, got)
		}
		if got, want := s.light(pos, true), sky[pos]; got != want {
			t.Fatalf("expected sky light %d at %v, got %d", want, pos, got)
		}
	})
}

func newTestEngine(s *testStorage) *Engine {
	return New(Config{Storage: s, Blocks: testBlocks{}})
}

func (s *testStorage) addChunk(e *Engine, pos cube.ChunkPos, r *rand.Rand) {
	c := chunk.New(air, testRange)
	s.chunks[pos] = c
	if r != nil {
		for x := uint8(0); x < 16; x++ {
			for z := uint8(0); z < 16; z++ {
				for y := int16(0); y < 4; y++ {
					c.SetBlock(x, y, z, stone)
				}
				for y := int16(4); y < 28; y++ {
					switch n := r.IntN(100); {
					case n < 8:
						c.SetBlock(x, y, z, stone)
					case n < 9:
						c.SetBlock(x, y, z, torch)
					case n < 12:
						c.SetBlock(x, y, z, glass)
					case n < 17:
						c.SetBlock(x, y, z, leaves)
					}
				}
			}
		}
	}
	e.ChunkLoaded(pos, true)
}

// edit changes a block and reports the change to the engine.
func (s *testStorage) edit(e *Engine, pos cube.Pos, rid uint32) {
	old := s.block(pos)
	s.set(pos, rid)
	var b testBlocks
	e.OnBlockChange(pos, b.Opacity(old), b.Opacity(rid), b.Emission(rid))
}

func TestPropagateMatchesReference(t *testing.T) {
	s := newTestStorage()
	e := newTestEngine(s)
	r := rand.New(rand.NewPCG(11, 12))
	for _, pos := range []cube.ChunkPos{{0, 0}, {1, 0}, {0, 1}, {-1, -1}} {
		s.addChunk(e, pos, r)
	}
	e.Propagate()
	if s.locked != 0 {
		t.Fatalf("expected all chunks to be released, %d still locked", s.locked)
	}
	s.checkReference(t)

	rids := []uint32{air, stone, glowstone, torch, glass, leaves}
	for round := 0; round < 6; round++ {
		for i := 0; i < 25; i++ {
			pos := cube.Pos{r.IntN(48) - 16, r.IntN(32), r.IntN(32)}
			if _, ok := s.chunks[pos.ChunkPos()]; !ok {
				continue
			}
			s.edit(e, pos, rids[r.IntN(len(rids))])
		}
		e.Propagate()
		s.checkReference(t)
	}
}

func TestPropagateReachesFixedPoint(t *testing.T) {
	s := newTestStorage()
	e := newTestEngine(s)
	s.addChunk(e, cube.ChunkPos{}, rand.New(rand.NewPCG(1, 1)))
	e.Propagate()
	before := s.chunks[cube.ChunkPos{}].Clone()

	// Reporting changes that did not change anything must leave light as is.
	for _, pos := range []cube.Pos{{3, 10, 3}, {8, 4, 8}, {15, 27, 0}, {0, 31, 15}} {
		s.edit(e, pos, s.block(pos))
	}
	e.Propagate()
	e.Propagate()
	if queued, _ := e.Pending(); queued != 0 {
		t.Fatalf("expected nothing queued, got %d", queued)
	}
	after := s.chunks[cube.ChunkPos{}]
	for i, sec := range after.Sections() {
		if *sec.BlockLight() != *before.Sections()[i].BlockLight() || *sec.SkyLight() != *before.Sections()[i].SkyLight() {
			t.Fatalf("expected light of section %d to be unchanged by another propagation", i)
		}
	}
}

func TestPropagateIsOrderIndependent(t *testing.T) {
	edits := []struct {
		pos cube.Pos
		rid uint32
	}{
		{cube.Pos{4, 10, 4}, torch},
		{cube.Pos{5, 10, 4}, stone},
		{cube.Pos{4, 12, 4}, stone},
		{cube.Pos{8, 20, 8}, glowstone},
		{cube.Pos{4, 10, 4}, air},
		{cube.Pos{9, 20, 8}, leaves},
		{cube.Pos{6, 11, 4}, torch},
	}
	build := func(order []int) *testStorage {
		s := newTestStorage()
		e := newTestEngine(s)
		s.addChunk(e, cube.ChunkPos{}, nil)
		e.Propagate()
		final := map[cube.Pos]uint32{}
		for _, ed := range edits {
			final[ed.pos] = ed.rid
		}
		for _, i := range order {
			pos := edits[i].pos
			s.edit(e, pos, final[pos])
			e.Propagate()
		}
		return s
	}
	a := build([]int{0, 1, 2, 3, 5, 6})
	b := build([]int{6, 5, 3, 2, 1, 0})
	a.forEach(func(pos cube.Pos) {
		if a.light(pos, false) != b.light(pos, false) || a.light(pos, true) != b.light(pos, true) {
			t.Fatalf("expected identical light at %v regardless of edit order", pos)
		}
	})
	a.checkReference(t)
}

func TestSkyLightUnderRoof(t *testing.T) {
	s := newTestStorage()
	e := newTestEngine(s)
	s.addChunk(e, cube.ChunkPos{}, nil)
	e.Propagate()
	if got := s.light(cube.Pos{8, 0, 8}, true); got != 15 {
		t.Fatalf("expected full sky light down to the bottom, got %d", got)
	}

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			if x == 0 {
				continue
			}
			s.edit(e, cube.Pos{x, 20, z}, stone)
		}
	}
	e.Propagate()
	if got := s.light(cube.Pos{0, 10, 8}, true); got != 15 {
		t.Fatalf("expected full sky light in the open column, got %d", got)
	}
	if got := s.light(cube.Pos{3, 19, 8}, true); got != 12 {
		t.Fatalf("expected sky light 12 three blocks under the roof, got %d", got)
	}
	if got := s.light(cube.Pos{15, 19, 8}, true); got != 0 {
		t.Fatalf("expected no sky light deep under the roof, got %d", got)
	}
	s.checkReference(t)
}

func TestCrossChunkUpdatesAreDeferred(t *testing.T) {
	s := newTestStorage()
	e := newTestEngine(s)
	s.addChunk(e, cube.ChunkPos{}, nil)
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			s.set(cube.Pos{x, 31, z}, stone)
		}
	}
	s.set(cube.Pos{15, 10, 8}, torch)
	e.Propagate()
	if _, deferred := e.Pending(); deferred == 0 {
		t.Fatalf("expected light updates deferred into the unloaded neighbour")
	}

	east := chunk.New(air, testRange)
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			east.SetBlock(x, 31, z, stone)
		}
	}
	s.chunks[cube.ChunkPos{1, 0}] = east
	e.ChunkLoaded(cube.ChunkPos{1, 0}, true)
	e.Propagate()
	if got := s.light(cube.Pos{16, 10, 8}, false); got != 13 {
		t.Fatalf("expected block light 13 across the border, got %d", got)
	}
	if _, ok := e.obligations.chunks[cube.ChunkPos{1, 0}]; ok {
		t.Fatalf("expected deferred updates of the loaded chunk to be replayed")
	}
	s.checkReference(t)

	// Unload the neighbour, remove the torch and load the neighbour again with
	// its stale light.
	delete(s.chunks, cube.ChunkPos{1, 0})
	s.edit(e, cube.Pos{15, 10, 8}, air)
	e.Propagate()
	if _, deferred := e.Pending(); deferred == 0 {
		t.Fatalf("expected light removal deferred into the unloaded neighbour")
	}
	s.chunks[cube.ChunkPos{1, 0}] = east
	e.ChunkLoaded(cube.ChunkPos{1, 0}, false)
	e.Propagate()
	if got := s.light(cube.Pos{16, 10, 8}, false); got != 0 {
		t.Fatalf("expected stale block light to be removed, got %d", got)
	}
	s.checkReference(t)
}

func TestAbsentChunksDropUpdates(t *testing.T) {
	s := newTestStorage()
	e := newTestEngine(s)
	s.addChunk(e, cube.ChunkPos{}, nil)
	e.Propagate()
	_, deferred := e.Pending()
	if deferred == 0 {
		t.Fatalf("expected sky light deferred into the neighbours")
	}

	s.absent = func(pos cube.ChunkPos) bool { return pos[0] > 0 }
	dropped := e.PruneAbsent()
	if dropped == 0 {
		t.Fatalf("expected updates for absent chunks to be dropped")
	}
	if _, left := e.Pending(); left != deferred-dropped {
		t.Fatalf("expected %d deferred updates left, got %d", deferred-dropped, left)
	}

	s.absent = func(cube.ChunkPos) bool { return true }
	s.edit(e, cube.Pos{0, 10, 0}, torch)
	e.PruneAbsent()
	e.Propagate()
	if _, left := e.Pending(); left != 0 {
		t.Fatalf("expected no updates deferred into absent chunks, got %d", left)
	}
}

func TestReadOnlyChunksAreNotWritten(t *testing.T) {
	s := newTestStorage()
	e := newTestEngine(s)
	s.addChunk(e, cube.ChunkPos{0, 0}, rand.New(rand.NewPCG(3, 4)))
	s.addChunk(e, cube.ChunkPos{1, 0}, rand.New(rand.NewPCG(5, 6)))
	e.Propagate()
	if !s.written[cube.ChunkPos{0, 0}] || !s.written[cube.ChunkPos{1, 0}] {
		t.Fatalf("expected fresh chunks to be written, got %v", s.written)
	}

	// Reloading a chunk reseeds its borders, which reads the neighbour but
	// leaves all light unchanged.
	clear(s.written)
	e.ChunkLoaded(cube.ChunkPos{1, 0}, false)
	e.Propagate()
	if len(s.written) != 0 {
		t.Fatalf("expected no chunks written by reseeding settled light, got %v", s.written)
	}
	if s.locked != 0 {
		t.Fatalf("expected all chunks to be released, %d still locked", s.locked)
	}

	s.edit(e, cube.Pos{3, 30, 8}, glowstone)
	e.Propagate()
	if !s.written[cube.ChunkPos{0, 0}] {
		t.Fatalf("expected chunk with new light source to be written")
	}
	s.checkReference(t)
}
