package block

// Glass is a decorative, fully transparent solid block.
type Glass struct {
	transparent
}

// EncodeBlock ...
func (Glass) EncodeBlock() (string, map[string]any) {
	return "minecraft:glass", nil
}

// Leaves are blocks that grow as part of trees. They let light through,
// reducing it slightly.
type Leaves struct{}

// LightDiffusionLevel ...
func (Leaves) LightDiffusionLevel() uint8 {
	return 1
}

// EncodeBlock ...
func (Leaves) EncodeBlock() (string, map[string]any) {
	return "minecraft:oak_leaves", nil
}

// Torch is a non-solid block that emits light.
type Torch struct {
	transparent
}

// LightEmissionLevel ...
func (Torch) LightEmissionLevel() uint8 {
	return 14
}

// EncodeBlock ...
func (Torch) EncodeBlock() (string, map[string]any) {
	return "minecraft:torch", nil
}
