package world

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// ChunkPos holds the position of a chunk. It is an alias of cube.ChunkPos.
type ChunkPos = cube.ChunkPos

// Block is a block state that may be placed in a Level. Implementations are
// expected to be comparable value types.
type Block interface {
	// EncodeBlock encodes the block to its name and the properties of its
	// state.
	EncodeBlock() (name string, properties map[string]any)
}

// ScheduledTicker is a Block that is updated when a block update scheduled for
// its position fires.
type ScheduledTicker interface {
	ScheduledTick(pos cube.Pos, tx *Tx, r *rand.Rand)
}

// RandomTicker is a Block that is updated when it is selected for a random
// tick in a ticking column.
type RandomTicker interface {
	RandomTick(pos cube.Pos, tx *Tx, r *rand.Rand)
}

// LightEmitter is a Block that emits block light.
type LightEmitter interface {
	LightEmissionLevel() uint8
}

// LightDiffuser is a Block that lets light through, reducing it by the level
// returned. Blocks that do not implement LightDiffuser block all light.
type LightDiffuser interface {
	LightDiffusionLevel() uint8
}

// Liquid is a Block that flows. Fluid updates scheduled with
// Tx.ScheduleFluidUpdate fire the ScheduledTick method of the Liquid.
type Liquid interface {
	Block
	ScheduledTicker
	// LiquidDepth returns the depth of the liquid, 8 for a source block and
	// lower for flowing liquid.
	LiquidDepth() int
	// WithDepth returns the liquid with the depth passed.
	WithDepth(depth int) Liquid
}

// Air is the block that fills every empty position of a Level. It always has
// runtime ID 0.
type Air struct{}

func (Air) EncodeBlock() (string, map[string]any) { return "minecraft:air", nil }
func (Air) LightDiffusionLevel() uint8           { return 0 }

// airRID is the runtime ID of Air.
const airRID uint32 = 0

// blockProperties caches the capabilities of a registered block state.
type blockProperties struct {
	name         string
	opacity      uint8
	emission     uint8
	randomTicker bool
}

var (
	blocks          []Block
	blockProps      []blockProperties
	stateRuntimeIDs = map[uint64]uint32{}
	defaultStates   = map[string]uint32{}
)

func init() {
	RegisterBlock(Air{})

	chunk.RuntimeIDToState = func(rid uint32) (string, map[string]any, bool) {
		b, ok := BlockByRuntimeID(rid)
		if !ok {
			return "", nil, false
		}
		name, props := b.EncodeBlock()
		return name, props, true
	}
	chunk.StateToRuntimeID = func(name string, props map[string]any) (uint32, bool) {
		if rid, ok := stateRuntimeIDs[stateHash(name, props)]; ok {
			return rid, true
		}
		if len(props) == 0 {
			rid, ok := defaultStates[name]
			return rid, ok
		}
		return 0, false
	}
}

// RegisterBlock registers a block state so that it may be placed in a Level.
// The first state registered with a name becomes the default state of that
// name. RegisterBlock panics if the state was already registered. Blocks
// must be registered before any Level is created.
func RegisterBlock(b Block) {
	name, props := b.EncodeBlock()
	h := stateHash(name, props)
	if _, ok := stateRuntimeIDs[h]; ok {
		panic(fmt.Sprintf("block state %v %v registered twice", name, props))
	}
	rid := uint32(len(blocks))
	blocks = append(blocks, b)
	stateRuntimeIDs[h] = rid
	if _, ok := defaultStates[name]; !ok {
		defaultStates[name] = rid
	}

	p := blockProperties{name: name, opacity: 15}
	if d, ok := b.(LightDiffuser); ok {
		p.opacity = min(d.LightDiffusionLevel(), 15)
	}
	if e, ok := b.(LightEmitter); ok {
		p.emission = min(e.LightEmissionLevel(), 15)
	}
	_, p.randomTicker = b.(RandomTicker)
	blockProps = append(blockProps, p)
}

// BlockRuntimeID returns the runtime ID of a registered block state. It panics
// if the state was never registered.
func BlockRuntimeID(b Block) uint32 {
	if _, ok := b.(Air); ok {
		return airRID
	}
	rid, ok := stateRuntimeIDs[BlockHash(b)]
	if !ok {
		name, props := b.EncodeBlock()
		panic(fmt.Sprintf("block state %v %v is not registered", name, props))
	}
	return rid
}

// BlockByRuntimeID returns the block state with the runtime ID passed.
func BlockByRuntimeID(rid uint32) (Block, bool) {
	if int(rid) >= len(blocks) {
		return nil, false
	}
	return blocks[rid], true
}

// BlockByName returns the default state of the block with the name passed.
func BlockByName(name string) (Block, bool) {
	rid, ok := defaultStates[name]
	if !ok {
		return nil, false
	}
	return blocks[rid], true
}

func blockByRuntimeIDOrAir(rid uint32) Block {
	if b, ok := BlockByRuntimeID(rid); ok {
		return b
	}
	return Air{}
}

// BlockHash returns a hash identifying the state of the block passed.
func BlockHash(b Block) uint64 {
	return stateHash(b.EncodeBlock())
}

func stateHash(name string, props map[string]any) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		// Values are formatted so that states read back with a different
		// integer type hash the same.
		_, _ = d.WriteString("\x00" + k + "=" + fmt.Sprint(props[k]))
	}
	return d.Sum64()
}

func propertiesOf(rid uint32) blockProperties {
	if int(rid) >= len(blockProps) {
		return blockProperties{opacity: 15}
	}
	return blockProps[rid]
}

// sameBlockType reports if both runtime IDs belong to a block with the same
// name.
func sameBlockType(a, b uint32) bool {
	return a == b || propertiesOf(a).name == propertiesOf(b).name
}
