package block

import (
	"math/rand/v2"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
)

// Dirt is a block found abundantly in most biomes under a layer of grass
// blocks at the top of the world.
type Dirt struct{}

// EncodeBlock ...
func (Dirt) EncodeBlock() (string, map[string]any) {
	return "minecraft:dirt", nil
}

// Grass blocks generate abundantly across the surface of the world. They
// turn back into dirt when covered by an opaque block and spread to lit dirt
// nearby.
type Grass struct{}

// grassSpreadLight is the sky light needed above dirt for grass to spread
// onto it.
const grassSpreadLight = 9

// RandomTick ...
func (g Grass) RandomTick(pos cube.Pos, tx *world.Tx, r *rand.Rand) {
	if covered(tx, pos) {
		tx.SetBlock(pos, Dirt{})
		return
	}
	target := pos.Add(cube.Pos{r.IntN(3) - 1, r.IntN(5) - 3, r.IntN(3) - 1})
	if _, ok := tx.Block(target).(Dirt); !ok {
		return
	}
	if covered(tx, target) || tx.SkyLight(target.Side(cube.FaceUp)) < grassSpreadLight {
		return
	}
	tx.SetBlock(target, g)
}

// covered reports if the block above the position passed blocks all light.
func covered(tx *world.Tx, pos cube.Pos) bool {
	d, ok := tx.Block(pos.Side(cube.FaceUp)).(world.LightDiffuser)
	return !ok || d.LightDiffusionLevel() >= 15
}

// EncodeBlock ...
func (Grass) EncodeBlock() (string, map[string]any) {
	return "minecraft:grass_block", nil
}
