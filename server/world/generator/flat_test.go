package generator

import (
	"testing"

	"github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

func TestFlatLayers(t *testing.T) {
	f := DefaultFlat()
	r := cube.Range{-64, 319}
	c := chunk.New(world.AirRuntimeID(), r)
	if err := f.GenerateChunk(world.ChunkPos{5, -3}, c); err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := []world.Block{block.Bedrock{}, block.Dirt{}, block.Dirt{}, block.Grass{}, world.Air{}}
	for i, b := range want {
		y := int16(-64 + i)
		if got := c.Block(9, y, 2); got != world.BlockRuntimeID(b) {
			t.Fatalf("expected %#v at y=%v, got runtime ID %v", b, y, got)
		}
	}
	if s := f.Surface(r.Min()); s != -61 {
		t.Fatalf("expected surface at y=-61, got %v", s)
	}
}
