package block

import (
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
)

func init() {
	for _, b := range allBlocks() {
		world.RegisterBlock(b)
	}
}

// allBlocks returns every block state of the package in the order they are
// registered. The first state of every block is its default state.
func allBlocks() []world.Block {
	b := []world.Block{
		Stone{},
		Dirt{},
		Grass{},
		Bedrock{},
		Glass{},
		Leaves{},
		Glowstone{},
		Torch{},
		Sand{},
	}
	return append(b, allWater()...)
}

// transparent implements world.LightDiffuser for blocks that let light
// through without reducing it.
type transparent struct{}

// LightDiffusionLevel ...
func (transparent) LightDiffusionLevel() uint8 {
	return 0
}

// Place sets the block passed at the position passed and schedules the
// updates it needs to start behaving, such as falling or flowing. Blocks
// above the position are woken up if they may fall.
func Place(tx *world.Tx, pos cube.Pos, b world.Block) {
	tx.SetBlock(pos, b)
	switch b := b.(type) {
	case world.Liquid:
		tx.ScheduleFluidUpdate(pos, b, waterFlowDelay, 0)
	case Sand:
		tx.ScheduleBlockUpdate(pos, b, sandFallDelay, 0)
	}
	wakeNeighbours(tx, pos)
}

// wakeNeighbours schedules updates for falling blocks above and liquids next
// to the position passed, which may be able to move into it.
func wakeNeighbours(tx *world.Tx, pos cube.Pos) {
	above := pos.Side(cube.FaceUp)
	if s, ok := tx.Block(above).(Sand); ok {
		tx.ScheduleBlockUpdate(above, s, sandFallDelay, 0)
	}
	for _, face := range cube.Faces() {
		if face == cube.FaceDown {
			continue
		}
		n := pos.Side(face)
		if l, ok := tx.Block(n).(world.Liquid); ok {
			tx.ScheduleFluidUpdate(n, l, waterFlowDelay, 0)
		}
	}
}

// replaceable reports if a falling block or liquid may move into the block
// passed.
func replaceable(b world.Block) bool {
	_, ok := b.(world.Air)
	return ok
}
