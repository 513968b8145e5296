package block

// Stone is a block found underground in the world or on mountains.
type Stone struct{}

// EncodeBlock ...
func (Stone) EncodeBlock() (string, map[string]any) {
	return "minecraft:stone", nil
}

// Bedrock is a block that forms the bottom of the world. It cannot be
// broken.
type Bedrock struct{}

// EncodeBlock ...
func (Bedrock) EncodeBlock() (string, map[string]any) {
	return "minecraft:bedrock", nil
}

// Glowstone is a brightly lit block.
type Glowstone struct{}

// LightEmissionLevel ...
func (Glowstone) LightEmissionLevel() uint8 {
	return 15
}

// EncodeBlock ...
func (Glowstone) EncodeBlock() (string, map[string]any) {
	return "minecraft:glowstone", nil
}
