package chunk

// LightArray holds 4-bit light values for every block in a 16x16x16 section.
// Two values are packed in every byte, the lower nibble holding the value with
// an even index.
type LightArray [2048]byte

// At returns the light value at the local x, y and z passed.
func (a *LightArray) At(x, y, z uint8) uint8 {
	i := offset(x, y, z)
	return a[i>>1] >> ((i & 1) << 2) & 0xf
}

// Set sets the light value at the local x, y and z passed. Values above 15 are
// clamped.
func (a *LightArray) Set(x, y, z, v uint8) {
	v = min(v, 15)
	i := offset(x, y, z)
	shift := (i & 1) << 2
	a[i>>1] = a[i>>1]&^(0xf<<shift) | v<<shift
}

// Fill sets every value in the array to v.
func (a *LightArray) Fill(v uint8) {
	v = min(v, 15)
	b := v | v<<4
	for i := range a {
		a[i] = b
	}
}
