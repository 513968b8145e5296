package anvil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tnze/go-mc/save/region"
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

var testRange = cube.Range{-16, 31}

type testOre struct{}

func (testOre) EncodeBlock() (string, map[string]any) { return "test:ore", nil }

func init() {
	world.RegisterBlock(testOre{})
}

func testColumn() *chunk.Column {
	c := chunk.New(world.AirRuntimeID(), testRange)
	c.SetBlock(3, -10, 12, world.BlockRuntimeID(testOre{}))
	c.SetSkyLight(3, 20, 12, 9)
	return &chunk.Column{Chunk: c, Status: chunk.StatusFull}
}

func openProvider(t *testing.T, dir string, conf Config) *Provider {
	t.Helper()
	conf.Range = testRange
	p, err := conf.Open(dir)
	if err != nil {
		t.Fatalf("open provider: %v", err)
	}
	return p
}

func TestProviderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	positions := []world.ChunkPos{{0, 0}, {-1, 40}, {33, -70}}

	p := openProvider(t, dir, Config{})
	for _, pos := range positions {
		if err := p.StoreColumn(pos, testColumn()); err != nil {
			t.Fatalf("store %v: %v", pos, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	p = openProvider(t, dir, Config{})
	t.Cleanup(func() { _ = p.Close() })
	for _, pos := range positions {
		col, err := p.LoadColumn(pos)
		if err != nil {
			t.Fatalf("load %v: %v", pos, err)
		}
		if got := col.Chunk.Block(3, -10, 12); got != world.BlockRuntimeID(testOre{}) {
			t.Fatalf("expected ore in column %v, got %v", pos, got)
		}
		if got := col.Chunk.SkyLight(3, 20, 12); got != 9 {
			t.Fatalf("expected sky light 9 in column %v, got %v", pos, got)
		}
	}
	regions, err := p.Regions()
	if err != nil {
		t.Fatalf("list regions: %v", err)
	}
	if len(regions) != 3 {
		t.Fatalf("expected 3 region files, got %v", len(regions))
	}
}

func TestProviderMissingColumn(t *testing.T) {
	p := openProvider(t, t.TempDir(), Config{})
	t.Cleanup(func() { _ = p.Close() })

	if _, err := p.LoadColumn(world.ChunkPos{5, 5}); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without region file, got %v", err)
	}
	if err := p.StoreColumn(world.ChunkPos{4, 5}, testColumn()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := p.LoadColumn(world.ChunkPos{5, 5}); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing sector, got %v", err)
	}
}

func TestProviderCorruptSector(t *testing.T) {
	dir := t.TempDir()
	p := openProvider(t, dir, Config{})
	if err := p.StoreColumn(world.ChunkPos{1, 0}, testColumn()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, err := region.Open(filepath.Join(dir, "region", "r.0.0.mca"))
	if err != nil {
		t.Fatalf("open region: %v", err)
	}
	if err := r.WriteSector(2, 0, []byte{byte(CompressionZlib), 1, 2, 3}); err != nil {
		t.Fatalf("write sector: %v", err)
	}
	if err := r.WriteSector(3, 0, []byte{byte(CompressionNone), 0x0a, 0, 0, 0}); err != nil {
		t.Fatalf("write sector: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close region: %v", err)
	}

	p = openProvider(t, dir, Config{})
	t.Cleanup(func() { _ = p.Close() })
	for _, pos := range []world.ChunkPos{{2, 0}, {3, 0}} {
		if _, err := p.LoadColumn(pos); !errors.Is(err, world.ErrCorrupt) {
			t.Fatalf("expected ErrCorrupt for %v, got %v", pos, err)
		}
	}
	if _, err := p.LoadColumn(world.ChunkPos{1, 0}); err != nil {
		t.Fatalf("expected intact column to load, got %v", err)
	}
}

func TestProviderCorruptRegionHeader(t *testing.T) {
	dir := t.TempDir()
	p := openProvider(t, dir, Config{})
	t.Cleanup(func() { _ = p.Close() })
	path := filepath.Join(dir, "region", "r.0.0.mca")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write region: %v", err)
	}

	pos := world.ChunkPos{1, 1}
	if _, err := p.LoadColumn(pos); !errors.Is(err, world.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for a truncated region header, got %v", err)
	}
	if err := p.StoreColumn(pos, testColumn()); err != nil {
		t.Fatalf("expected store to replace the corrupt region, got %v", err)
	}
	col, err := p.LoadColumn(pos)
	if err != nil {
		t.Fatalf("load after store: %v", err)
	}
	if got := col.Chunk.Block(3, -10, 12); got != world.BlockRuntimeID(testOre{}) {
		t.Fatalf("expected ore in the stored column, got %v", got)
	}
	if _, err := p.LoadColumn(world.ChunkPos{2, 2}); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("expected other columns of the replaced region to be missing, got %v", err)
	}

	moved, err := os.ReadFile(path + ".corrupt")
	if err != nil {
		t.Fatalf("expected corrupt region to be kept aside: %v", err)
	}
	if string(moved) != "garbage" {
		t.Fatalf("expected moved region to hold the old contents, got %q", moved)
	}
	regions, err := p.Regions()
	if err != nil {
		t.Fatalf("list regions: %v", err)
	}
	if len(regions) != 1 || regions[0] != path {
		t.Fatalf("expected only %v to be listed, got %v", path, regions)
	}
}

func TestProviderCompressionSchemes(t *testing.T) {
	dir := t.TempDir()
	for i, c := range []Compression{CompressionGzip, CompressionZlib, CompressionNone} {
		p := openProvider(t, dir, Config{Compression: c})
		if err := p.StoreColumn(world.ChunkPos{int32(i), 0}, testColumn()); err != nil {
			t.Fatalf("store with %v: %v", c, err)
		}
		if err := p.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	p := openProvider(t, dir, Config{})
	t.Cleanup(func() { _ = p.Close() })
	for i := range 3 {
		if _, err := p.LoadColumn(world.ChunkPos{int32(i), 0}); err != nil {
			t.Fatalf("load column %v: %v", i, err)
		}
	}
}

func TestProviderRegionCache(t *testing.T) {
	p := openProvider(t, t.TempDir(), Config{MaxOpenRegions: 1})
	t.Cleanup(func() { _ = p.Close() })

	for i := range 4 {
		pos := world.ChunkPos{int32(i * 32), 0}
		if err := p.StoreColumn(pos, testColumn()); err != nil {
			t.Fatalf("store %v: %v", pos, err)
		}
	}
	for i := range 4 {
		pos := world.ChunkPos{int32(i * 32), 0}
		if _, err := p.LoadColumn(pos); err != nil {
			t.Fatalf("load %v: %v", pos, err)
		}
	}
	if n := len(p.regions); n != 1 {
		t.Fatalf("expected 1 open region, got %v", n)
	}
}
