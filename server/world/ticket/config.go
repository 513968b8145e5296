package ticket

// Config holds the level thresholds used by a Manager. A zero Config is
// usable and is filled with the default thresholds by withDefaults.
type Config struct {
	// MaxLevel is the first level that is no longer tracked. Tickets at or
	// above MaxLevel are ignored and positions whose effective level reaches
	// MaxLevel are dropped from the level map.
	MaxLevel uint8
	// LoadedLevel is the highest effective level at which a chunk is kept
	// loaded.
	LoadedLevel uint8
	// TickingLevel is the highest effective level at which a chunk is
	// actively ticked. It must not exceed LoadedLevel.
	TickingLevel uint8
}

const (
	DefaultMaxLevel     = 47
	DefaultLoadedLevel  = 43
	DefaultTickingLevel = 42
)

func (c Config) withDefaults() Config {
	if c.MaxLevel == 0 {
		return Config{MaxLevel: DefaultMaxLevel, LoadedLevel: DefaultLoadedLevel, TickingLevel: DefaultTickingLevel}
	}
	if c.LoadedLevel >= c.MaxLevel {
		c.LoadedLevel = c.MaxLevel - 1
	}
	if c.TickingLevel > c.LoadedLevel {
		c.TickingLevel = c.LoadedLevel
	}
	return c
}

// Class returns the Class that a chunk with the effective level passed falls
// into.
func (c Config) Class(level uint8) Class {
	switch {
	case level >= c.MaxLevel:
		return Unloaded
	case level <= c.TickingLevel:
		return Ticking
	case level <= c.LoadedLevel:
		return Loadable
	}
	return Unloaded
}

// ViewLevel returns the ticket level that keeps every chunk within the view
// distance passed loaded. The chunk in the centre and its neighbours up to one
// chunk less than the view distance are ticking.
func (c Config) ViewLevel(viewDistance int) uint8 {
	c = c.withDefaults()
	return uint8(max(0, int(c.LoadedLevel)-viewDistance))
}

// Class is the classification of a chunk based on its effective level.
type Class uint8

const (
	// Unloaded chunks are not required to be in memory.
	Unloaded Class = iota
	// Loadable chunks must be loaded but are not ticked.
	Loadable
	// Ticking chunks must be loaded and have their blocks ticked.
	Ticking
)

// String ...
func (c Class) String() string {
	switch c {
	case Unloaded:
		return "unloaded"
	case Loadable:
		return "loadable"
	case Ticking:
		return "ticking"
	}
	return "unknown"
}
