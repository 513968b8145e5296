package block

import (
	"context"
	"testing"
	"time"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
	"github.com/google/uuid"
)

// floorGenerator places a layer of stone at the bottom of every chunk.
type floorGenerator struct{}

func (floorGenerator) GenerateChunk(_ world.ChunkPos, c *chunk.Chunk) error {
	stone := world.BlockRuntimeID(Stone{})
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			c.SetBlock(x, 0, z, stone)
		}
	}
	return nil
}

// newTickingLevel creates a Level with chunk 0,0 loaded and ticking.
func newTickingLevel(t *testing.T) *world.Level {
	t.Helper()
	l, err := world.Config{
		Range:           cube.Range{0, 63},
		Generator:       floorGenerator{},
		DisableTicking:  true,
		SpawnRadius:     -1,
		RandomTickSpeed: -1,
	}.New()
	if err != nil {
		t.Fatalf("create level: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil {
			t.Fatalf("failed closing level: %v", err)
		}
	})
	pos := world.ChunkPos{0, 0}
	l.AddTicket(uuid.New(), pos, l.Tickets().Config().TickingLevel)
	tick(t, l, "column to load", func() bool { return l.Loaded(pos) })
	return l
}

// tick ticks the level until cond returns true.
func tick(t *testing.T, l *world.Level, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := l.Tick(context.Background()); err != nil {
			t.Fatalf("tick: %v", err)
		}
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

// exec runs f in a transaction and ticks the level once to run it.
func exec(t *testing.T, l *world.Level, f func(tx *world.Tx)) {
	t.Helper()
	done := l.Exec(f)
	if err := l.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	<-done
}

func blockAt(t *testing.T, l *world.Level, pos cube.Pos) world.Block {
	t.Helper()
	var b world.Block
	exec(t, l, func(tx *world.Tx) { b = tx.Block(pos) })
	return b
}

func TestSandFalls(t *testing.T) {
	l := newTickingLevel(t)
	exec(t, l, func(tx *world.Tx) {
		Place(tx, cube.Pos{5, 12, 5}, Sand{})
		Place(tx, cube.Pos{5, 13, 5}, Sand{})
	})
	tick(t, l, "sand to land", func() bool {
		return blockAt(t, l, cube.Pos{5, 1, 5}) == Sand{} && blockAt(t, l, cube.Pos{5, 2, 5}) == Sand{}
	})
	if b := blockAt(t, l, cube.Pos{5, 12, 5}); b != (world.Air{}) {
		t.Fatalf("expected sand to have left its position, got %#v", b)
	}
}

func TestSandRestsOnBlocks(t *testing.T) {
	l := newTickingLevel(t)
	exec(t, l, func(tx *world.Tx) {
		tx.SetBlock(cube.Pos{5, 1, 5}, Glass{})
		Place(tx, cube.Pos{5, 2, 5}, Sand{})
	})
	for range 10 {
		if err := l.Tick(context.Background()); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if b := blockAt(t, l, cube.Pos{5, 2, 5}); b != (Sand{}) {
		t.Fatalf("expected sand to rest on glass, got %#v", b)
	}
}

func TestWaterFlows(t *testing.T) {
	l := newTickingLevel(t)
	exec(t, l, func(tx *world.Tx) {
		Place(tx, cube.Pos{8, 4, 8}, Water{Depth: 8})
	})
	tick(t, l, "water to spread", func() bool {
		w, ok := blockAt(t, l, cube.Pos{10, 1, 8}).(Water)
		return ok && w.Depth == 5
	})
	if b := blockAt(t, l, cube.Pos{9, 1, 8}); b != (Water{Depth: 6}) {
		t.Fatalf("expected water to spread on the floor, got %#v", b)
	}
	if b := blockAt(t, l, cube.Pos{8, 3, 8}); b != (Water{Depth: 7}) {
		t.Fatalf("expected water to flow down, got %#v", b)
	}
	if b := blockAt(t, l, cube.Pos{9, 4, 8}); b != (world.Air{}) {
		t.Fatalf("expected water not to flow sideways while it can flow down, got %#v", b)
	}
}

func TestWaterDefaultState(t *testing.T) {
	name, props := Water{Depth: 8}.EncodeBlock()
	if name != "minecraft:water" || props["level"] != int32(0) {
		t.Fatalf("expected source water to encode with level 0, got %v %v", name, props)
	}
	if d := (Water{Depth: 3}).WithDepth(12).LiquidDepth(); d != 8 {
		t.Fatalf("expected depth to be clamped to 8, got %v", d)
	}
}

func TestGrassRevertsWhenCovered(t *testing.T) {
	l := newTickingLevel(t)
	pos := cube.Pos{3, 1, 3}
	exec(t, l, func(tx *world.Tx) {
		tx.SetBlock(pos, Grass{})
		tx.SetBlock(pos.Side(cube.FaceUp), Stone{})
	})
	exec(t, l, func(tx *world.Tx) { Grass{}.RandomTick(pos, tx, tx.Rand()) })
	if b := blockAt(t, l, pos); b != (Dirt{}) {
		t.Fatalf("expected covered grass to turn into dirt, got %#v", b)
	}
}

func TestGrassSpreads(t *testing.T) {
	l := newTickingLevel(t)
	pos := cube.Pos{8, 1, 8}
	exec(t, l, func(tx *world.Tx) {
		for x := 7; x <= 9; x++ {
			for z := 7; z <= 9; z++ {
				tx.SetBlock(cube.Pos{x, 1, z}, Dirt{})
			}
		}
		tx.SetBlock(pos, Grass{})
	})
	exec(t, l, func(tx *world.Tx) {
		for range 200 {
			Grass{}.RandomTick(pos, tx, tx.Rand())
		}
	})
	spread := 0
	exec(t, l, func(tx *world.Tx) {
		for x := 7; x <= 9; x++ {
			for z := 7; z <= 9; z++ {
				if _, ok := tx.Block(cube.Pos{x, 1, z}).(Grass); ok {
					spread++
				}
			}
		}
	})
	if spread < 2 {
		t.Fatalf("expected grass to spread to nearby dirt, got %v grass blocks", spread)
	}
}

func TestLightProperties(t *testing.T) {
	l := newTickingLevel(t)
	exec(t, l, func(tx *world.Tx) {
		tx.SetBlock(cube.Pos{4, 5, 4}, Glowstone{})
		tx.SetBlock(cube.Pos{12, 5, 12}, Torch{})
	})
	if v := l.BlockLight(cube.Pos{5, 5, 4}); v != 14 {
		t.Fatalf("expected light 14 next to glowstone, got %v", v)
	}
	if v := l.BlockLight(cube.Pos{13, 5, 12}); v != 13 {
		t.Fatalf("expected light 13 next to a torch, got %v", v)
	}
}
