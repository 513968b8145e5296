package block

import (
	"math/rand/v2"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
)

// sandFallDelay is the amount of ticks sand takes to fall a single block.
const sandFallDelay = 2

// Sand is a block affected by gravity. It falls until it lands on a block
// that is not air.
type Sand struct{}

// ScheduledTick ...
func (s Sand) ScheduledTick(pos cube.Pos, tx *world.Tx, _ *rand.Rand) {
	below := pos.Side(cube.FaceDown)
	if below.OutOfBounds(tx.Range()) || !tx.Loaded(below) || !replaceable(tx.Block(below)) {
		return
	}
	tx.SetBlock(pos, world.Air{})
	tx.SetBlock(below, s)
	tx.ScheduleBlockUpdate(below, s, sandFallDelay, 0)
	wakeNeighbours(tx, pos)
}

// EncodeBlock ...
func (Sand) EncodeBlock() (string, map[string]any) {
	return "minecraft:sand", nil
}
