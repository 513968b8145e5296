package block

import (
	"math/rand/v2"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
)

// waterFlowDelay is the amount of ticks water takes to flow a single block.
const waterFlowDelay = 5

// Water is a natural fluid that generates abundantly in the world. Source
// blocks have a depth of 8. Water flowing down has a depth of 7 and loses
// one depth for every block it flows sideways.
type Water struct {
	transparentLiquid

	// Depth is the depth of the water, from 1 to 8.
	Depth int
}

// transparentLiquid reduces light passing through it slightly.
type transparentLiquid struct{}

// LightDiffusionLevel ...
func (transparentLiquid) LightDiffusionLevel() uint8 {
	return 2
}

// LiquidDepth ...
func (w Water) LiquidDepth() int {
	return w.Depth
}

// WithDepth ...
func (w Water) WithDepth(depth int) world.Liquid {
	w.Depth = min(max(depth, 1), 8)
	return w
}

// ScheduledTick makes the water flow down if it can, and sideways otherwise.
func (w Water) ScheduledTick(pos cube.Pos, tx *world.Tx, _ *rand.Rand) {
	below := pos.Side(cube.FaceDown)
	if !below.OutOfBounds(tx.Range()) && tx.Loaded(below) {
		switch b := tx.Block(below).(type) {
		case world.Air:
			w.flowInto(tx, below, 7)
			return
		case world.Liquid:
			if b.LiquidDepth() < 7 {
				w.flowInto(tx, below, 7)
			}
			return
		}
	}
	if w.Depth <= 1 {
		return
	}
	for _, face := range cube.HorizontalFaces() {
		side := pos.Side(face)
		if !tx.Loaded(side) {
			continue
		}
		switch b := tx.Block(side).(type) {
		case world.Air:
			w.flowInto(tx, side, w.Depth-1)
		case world.Liquid:
			if b.LiquidDepth() < w.Depth-1 {
				w.flowInto(tx, side, w.Depth-1)
			}
		}
	}
}

// flowInto places flowing water with the depth passed at the position passed
// and schedules it to flow further.
func (w Water) flowInto(tx *world.Tx, pos cube.Pos, depth int) {
	flowing := w.WithDepth(depth)
	tx.SetBlock(pos, flowing)
	tx.ScheduleFluidUpdate(pos, flowing, waterFlowDelay, 0)
}

// EncodeBlock ...
func (w Water) EncodeBlock() (string, map[string]any) {
	return "minecraft:water", map[string]any{"level": int32(8 - w.Depth)}
}

// allWater returns all water states, the source block first.
func allWater() (b []world.Block) {
	for depth := 8; depth >= 1; depth-- {
		b = append(b, Water{Depth: depth})
	}
	return
}
