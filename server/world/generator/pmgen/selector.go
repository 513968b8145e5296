package pmgen

import "github.com/dm-vev/chunkengine/server/world/generator/pmgen/biome"

// biomeSelector picks biomes from temperature and rainfall noise.
type biomeSelector struct {
	temperature *noise
	rainfall    *noise
}

func newBiomeSelector(seed uint64) *biomeSelector {
	return &biomeSelector{
		temperature: newNoise(seed^0x54454d50, 2, 1.0/16, 1.0/512),
		rainfall:    newNoise(seed^0x5241494e, 2, 1.0/16, 1.0/512),
	}
}

// pickBiome returns the biome at the block x and z passed.
func (s *biomeSelector) pickBiome(x, z int64) biome.Biome {
	temperature := (s.temperature.noise2D(float64(x), float64(z)) + 1) / 2
	rainfall := (s.rainfall.noise2D(float64(x), float64(z)) + 1) / 2
	return lookup(temperature, rainfall)
}

// lookup maps a temperature and rainfall in the range [0, 1] to a biome.
func lookup(temperature, rainfall float64) biome.Biome {
	switch {
	case rainfall < 0.25:
		if temperature < 0.7 {
			return biome.Ocean{}
		}
		return biome.River{}
	case rainfall < 0.60:
		if temperature < 0.75 {
			return biome.Plains{}
		}
		return biome.Desert{}
	case rainfall < 0.80:
		return biome.Forest{}
	default:
		if temperature < 0.25 {
			return biome.Mountains{}
		} else if temperature < 0.70 {
			return biome.SmallMountains{}
		}
		return biome.River{}
	}
}
