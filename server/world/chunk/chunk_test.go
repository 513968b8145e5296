package chunk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dm-vev/chunkengine/server/block/cube"
)

var testRange = cube.Range{-64, 319}

// installStates installs a tiny state registry for the duration of the test.
// Runtime ID 0 is air, every other ID is a block named after it.
func installStates(t *testing.T, n int) {
	t.Helper()
	oldTo, oldFrom := RuntimeIDToState, StateToRuntimeID
	RuntimeIDToState = func(rid uint32) (string, map[string]any, bool) {
		if int(rid) >= n {
			return "", nil, false
		}
		if rid == 0 {
			return "minecraft:air", nil, true
		}
		return fmt.Sprintf("test:block_%d", rid), map[string]any{"level": int32(rid)}, true
	}
	StateToRuntimeID = func(name string, props map[string]any) (uint32, bool) {
		if name == "minecraft:air" {
			return 0, true
		}
		var rid uint32
		if _, err := fmt.Sscanf(name, "test:block_%d", &rid); err != nil || int(rid) >= n {
			return 0, false
		}
		return rid, true
	}
	t.Cleanup(func() {
		RuntimeIDToState, StateToRuntimeID = oldTo, oldFrom
	})
}

func TestPalettedStorageGrowsAndCompacts(t *testing.T) {
	s := newPalettedStorage(0)
	if s.bitsPerIndex != 0 || len(s.data) != 0 {
		t.Fatalf("expected uniform storage without words, got %d bits and %d words", s.bitsPerIndex, len(s.data))
	}
	for i := 0; i < 40; i++ {
		s.Set(uint8(i%16), uint8(i/16), 3, uint32(i+1))
	}
	if got := len(s.Palette()); got != 41 {
		t.Fatalf("expected 41 palette entries, got %d", got)
	}
	if s.bitsPerIndex != 6 {
		t.Fatalf("expected 6 bits per index, got %d", s.bitsPerIndex)
	}
	for i := 0; i < 40; i++ {
		if got := s.At(uint8(i%16), uint8(i/16), 3); got != uint32(i+1) {
			t.Fatalf("expected value %d at index %d, got %d", i+1, i, got)
		}
	}
	if got := s.At(15, 15, 15); got != 0 {
		t.Fatalf("expected untouched value 0, got %d", got)
	}

	for i := 0; i < 40; i++ {
		s.Set(uint8(i%16), uint8(i/16), 3, 0)
	}
	s.compact()
	if !s.Uniform(0) {
		t.Fatalf("expected storage to be uniform after compaction, palette %v", s.Palette())
	}
	if len(s.Words()) != 0 {
		t.Fatalf("expected no words after compaction, got %d", len(s.Words()))
	}
}

func TestPalettedStorageRejectsBadWords(t *testing.T) {
	if _, err := newPalettedStorageFrom([]uint32{1, 2}, make([]uint64, 3)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for word count mismatch, got %v", err)
	}
	data := make([]uint64, wordsFor(4))
	data[0] = 0xf
	if _, err := newPalettedStorageFrom([]uint32{1, 2}, data); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for out of range palette index, got %v", err)
	}
}

func TestLightArrayNibbles(t *testing.T) {
	var a LightArray
	a.Set(0, 0, 0, 7)
	a.Set(1, 0, 0, 12)
	if got := a.At(0, 0, 0); got != 7 {
		t.Fatalf("expected 7 at even index, got %d", got)
	}
	if got := a.At(1, 0, 0); got != 12 {
		t.Fatalf("expected 12 at odd index, got %d", got)
	}
	if a[0] != 0xc7 {
		t.Fatalf("expected packed byte 0xc7, got %#x", a[0])
	}
	a.Set(2, 0, 0, 200)
	if got := a.At(2, 0, 0); got != 15 {
		t.Fatalf("expected clamped level 15, got %d", got)
	}
}

func TestChunkSkyAboveRange(t *testing.T) {
	c := New(0, testRange)
	if got := c.SkyLight(0, 320, 0); got != 15 {
		t.Fatalf("expected full sky light above the range, got %d", got)
	}
	if got := c.SkyLight(0, 319, 0); got != 0 {
		t.Fatalf("expected no sky light in an unlit chunk, got %d", got)
	}
	c.SetBlock(3, -64, 4, 2)
	c.SetBlock(3, 100, 4, 2)
	if got := c.HighestBlock(3, 4, func(rid uint32) bool { return rid != 0 }); got != 100 {
		t.Fatalf("expected highest block at 100, got %d", got)
	}
	if got := c.HighestBlock(0, 0, func(rid uint32) bool { return rid != 0 }); got != -65 {
		t.Fatalf("expected -65 for an empty column, got %d", got)
	}
}

func TestEncodeDecodePreservesColumn(t *testing.T) {
	installStates(t, 8)
	pos := cube.ChunkPos{-3, 7}

	c := New(0, testRange)
	c.SetBlock(0, -64, 0, 1)
	c.SetBlock(15, 319, 15, 5)
	c.SetBlock(8, 64, 8, 7)
	c.SetBlockLight(8, 65, 8, 14)
	c.SetSkyLight(1, 200, 1, 15)
	col := &Column{
		Chunk:      c,
		LastUpdate: 1200,
		BlockEntities: []BlockEntity{{
			Pos:  cube.Pos{-40, 64, 120},
			Data: map[string]any{"id": "test:chest"},
		}},
		BlockTicks: []ScheduledTick{{Pos: cube.Pos{-40, 70, 120}, Block: 5, Delay: 3, Priority: -1}},
		FluidTicks: []ScheduledTick{{Pos: cube.Pos{-41, 70, 121}, Block: 6, Delay: 10}},
	}
	data, err := Encode(col, pos)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data, pos, 0, testRange)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusFull {
		t.Fatalf("expected status %q, got %q", StatusFull, got.Status)
	}
	if got.LastUpdate != 1200 {
		t.Fatalf("expected last update 1200, got %d", got.LastUpdate)
	}
	for _, tc := range []struct {
		x    uint8
		y    int16
		z    uint8
		want uint32
	}{{0, -64, 0, 1}, {15, 319, 15, 5}, {8, 64, 8, 7}, {4, 4, 4, 0}} {
		if rid := got.Chunk.Block(tc.x, tc.y, tc.z); rid != tc.want {
			t.Fatalf("expected block %d at (%d, %d, %d), got %d", tc.want, tc.x, tc.y, tc.z, rid)
		}
	}
	if l := got.Chunk.BlockLight(8, 65, 8); l != 14 {
		t.Fatalf("expected block light 14, got %d", l)
	}
	if l := got.Chunk.SkyLight(1, 200, 1); l != 15 {
		t.Fatalf("expected sky light 15, got %d", l)
	}
	if len(got.BlockEntities) != 1 || got.BlockEntities[0].Pos != (cube.Pos{-40, 64, 120}) {
		t.Fatalf("expected one block entity at (-40, 64, 120), got %v", got.BlockEntities)
	}
	if id := got.BlockEntities[0].Data["id"]; id != "test:chest" {
		t.Fatalf("expected block entity id test:chest, got %v", id)
	}
	if len(got.BlockTicks) != 1 || got.BlockTicks[0] != col.BlockTicks[0] {
		t.Fatalf("expected block ticks %v, got %v", col.BlockTicks, got.BlockTicks)
	}
	if len(got.FluidTicks) != 1 || got.FluidTicks[0] != col.FluidTicks[0] {
		t.Fatalf("expected fluid ticks %v, got %v", col.FluidTicks, got.FluidTicks)
	}
}

func TestDecodeRejectsWrongPosition(t *testing.T) {
	installStates(t, 2)
	data, err := Encode(&Column{Chunk: New(0, testRange)}, cube.ChunkPos{1, 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(data, cube.ChunkPos{1, 2}, 0, testRange); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := Decode([]byte{0x0a, 0x00}, cube.ChunkPos{1, 1}, 0, testRange); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for truncated data, got %v", err)
	}
}

func TestDecodeUnknownStateBecomesAir(t *testing.T) {
	installStates(t, 4)
	c := New(0, testRange)
	c.SetBlock(1, 1, 1, 3)
	data, err := Encode(&Column{Chunk: c}, cube.ChunkPos{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	installStates(t, 2)
	got, err := Decode(data, cube.ChunkPos{}, 0, testRange)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rid := got.Chunk.Block(1, 1, 1); rid != 0 {
		t.Fatalf("expected unknown state to decode as air, got %d", rid)
	}
}
