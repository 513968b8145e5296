package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/anvil"
	"github.com/dm-vev/chunkengine/server/world/generator"
	"github.com/dm-vev/chunkengine/server/world/generator/pmgen"
	"github.com/dm-vev/chunkengine/server/world/mcdb"
)

// Config contains options for starting a world server.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set to
	// slog.Default(). Log is also passed on to the Level.
	Log *slog.Logger
	// Name is the name of the server as reported by the status query.
	Name string
	// World holds the configuration of the Level served.
	World world.Config
	// MaxViewRadius is the maximum view radius in chunks that viewers may
	// have. It defaults to 16.
	MaxViewRadius int
	// LoadsPerSecond is the amount of columns fetched every second for every
	// viewer. A value of zero or lower disables pacing.
	LoadsPerSecond float64
	// LoadBatch is the maximum amount of columns requested for a viewer in a
	// single tick. It defaults to 16.
	LoadBatch int
	// ForceloadFile is the path of the TOML file holding the forced chunks.
	// If empty, forced chunks are not persisted.
	ForceloadFile string
	// QueryAddress is the UDP address on which status queries are answered.
	// If empty, no query listener is started.
	QueryAddress string
}

// New creates a Server using fields of conf. The Level of the Server is
// created immediately, acquiring the session lock of its directory.
func (conf Config) New() (*Server, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.World.Log == nil {
		conf.World.Log = conf.Log
	}
	if conf.Name == "" {
		conf.Name = "Chunk Engine Server"
	}
	if conf.MaxViewRadius <= 0 {
		conf.MaxViewRadius = 16
	}
	if conf.LoadBatch <= 0 {
		conf.LoadBatch = 16
	}
	return newServer(conf)
}

// UserConfig is the user configuration for a world server. It may be
// serialised and can be converted to a Config by calling UserConfig.Config().
type UserConfig struct {
	// Network holds settings related to network aspects of the server.
	Network struct {
		// QueryAddress is the UDP address on which status queries are
		// answered. Leave empty to disable the query listener.
		QueryAddress string
	}
	Server struct {
		// Name is the name of the server as reported by status queries.
		Name string
	}
	World struct {
		// Folder is the folder that the data of the world resides in.
		Folder string
		// Provider is the storage format of the world: "anvil" for region
		// files, "leveldb" for a LevelDB database or "none" to keep columns
		// in memory only.
		Provider string
		// Compression is the compression used for region files written by
		// the anvil provider: "zlib", "gzip" or "none".
		Compression string
		// Generator is the generator of new columns: "pmgen" for natural
		// terrain, "flat" for a flat world or "void" for empty columns.
		Generator string
		// Seed controls the terrain generated by the pmgen generator and the
		// random ticks of the world.
		Seed int64
		// ReadOnly specifies if columns should never be saved.
		ReadOnly bool
		// MinY and MaxY are the vertical bounds of the world.
		MinY, MaxY int
		// GeneratorWorkers is the number of goroutines generating columns.
		// Set to 0 to derive it from the amount of CPUs.
		GeneratorWorkers int
		// GeneratorQueueSize determines how many generation tasks can wait
		// for a worker. Set to 0 to use an automatically chosen size.
		GeneratorQueueSize int
		// IOWorkers bounds the amount of concurrent reads and writes of
		// columns.
		IOWorkers int
		// TickWorkers bounds the amount of tick batches run concurrently.
		TickWorkers int
		// SpawnX and SpawnZ are the chunk coordinates of the spawn area.
		SpawnX, SpawnZ int32
		// SpawnRadius is the radius of the spawn area kept ticking in chunks.
		// A negative radius disables the spawn area.
		SpawnRadius int
		// UnloadDelay is the amount of ticks a column stays loaded after it
		// is no longer needed.
		UnloadDelay int
		// RandomTickSpeed is the amount of blocks randomly ticked per section
		// every tick. A negative value disables random ticks.
		RandomTickSpeed int
		// WorldBorder is the distance in chunks from the origin beyond which
		// no columns exist. Zero means the world is unbounded.
		WorldBorder int
	}
	Viewers struct {
		// MaximumRadius is the maximum view radius of a viewer in chunks.
		MaximumRadius int
		// LoadsPerSecond is the amount of columns fetched every second for a
		// single viewer.
		LoadsPerSecond float64
		// LoadBatch is the amount of columns requested for a viewer at once.
		LoadBatch int
	}
	Forceload struct {
		// File is the path to the TOML file that stores forced chunks.
		File string
	}
}

// Config converts a UserConfig to a Config, so that it may be used for creating
// a Server. An error is returned if the data provider could not be opened or
// a setting is invalid.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	if log == nil {
		log = slog.Default()
	}
	r := cube.Range{uc.World.MinY, uc.World.MaxY}
	if r == (cube.Range{}) {
		r = cube.Range{-64, 319}
	}
	if r[0] > r[1] || r[0]&15 != 0 || (r[1]+1)&15 != 0 {
		return Config{}, fmt.Errorf("invalid world height %v to %v: bounds must be section aligned", r[0], r[1])
	}
	conf := Config{
		Log:            log,
		Name:           uc.Server.Name,
		MaxViewRadius:  uc.Viewers.MaximumRadius,
		LoadsPerSecond: uc.Viewers.LoadsPerSecond,
		LoadBatch:      uc.Viewers.LoadBatch,
		ForceloadFile:  strings.TrimSpace(uc.Forceload.File),
		QueryAddress:   strings.TrimSpace(uc.Network.QueryAddress),
		World: world.Config{
			Log:                log,
			Dir:                uc.World.Folder,
			ReadOnly:           uc.World.ReadOnly,
			Range:              r,
			GeneratorWorkers:   uc.World.GeneratorWorkers,
			GeneratorQueueSize: uc.World.GeneratorQueueSize,
			IOWorkers:          uc.World.IOWorkers,
			TickWorkers:        uc.World.TickWorkers,
			Spawn:              world.ChunkPos{uc.World.SpawnX, uc.World.SpawnZ},
			SpawnRadius:        uc.World.SpawnRadius,
			UnloadDelay:        uc.World.UnloadDelay,
			RandomTickSpeed:    uc.World.RandomTickSpeed,
			WorldBorder:        uc.World.WorldBorder,
			Seed:               uint64(uc.World.Seed),
		},
	}
	var err error
	if conf.World.Generator, err = uc.generator(); err != nil {
		return conf, err
	}
	if conf.World.Provider, err = uc.provider(log, r); err != nil {
		return conf, fmt.Errorf("create world provider: %w", err)
	}
	return conf, nil
}

// generator returns the world.Generator named in the UserConfig.
func (uc UserConfig) generator() (world.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(uc.World.Generator)) {
	case "", "pmgen", "overworld", "default":
		return pmgen.NewOverworld(uint64(uc.World.Seed)), nil
	case "flat":
		return generator.DefaultFlat(), nil
	case "void", "none":
		return world.NopGenerator{}, nil
	}
	return nil, fmt.Errorf("unknown generator %q", uc.World.Generator)
}

// provider opens the world.Provider named in the UserConfig.
func (uc UserConfig) provider(log *slog.Logger, r cube.Range) (world.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(uc.World.Provider)) {
	case "", "none", "memory":
		return nil, nil
	case "anvil", "region":
		if uc.World.Folder == "" {
			return nil, errors.New("anvil provider requires a world folder")
		}
		c := anvil.CompressionZlib
		if name := strings.TrimSpace(uc.World.Compression); name != "" {
			var err error
			if c, err = anvil.ParseCompression(strings.ToLower(name)); err != nil {
				return nil, err
			}
		}
		p, err := anvil.Config{Log: log, Range: r, Compression: c}.Open(uc.World.Folder)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "leveldb", "mcdb":
		if uc.World.Folder == "" {
			return nil, errors.New("leveldb provider requires a world folder")
		}
		db, err := mcdb.Config{Log: log, Range: r}.Open(uc.World.Folder)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown provider %q", uc.World.Provider)
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.Network.QueryAddress = ""
	c.Server.Name = "Chunk Engine Server"
	c.World.Folder = "world"
	c.World.Provider = "anvil"
	c.World.Compression = "zlib"
	c.World.Generator = "pmgen"
	c.World.Seed = 0
	c.World.MinY, c.World.MaxY = -64, 319
	c.World.SpawnRadius = world.DefaultSpawnRadius
	c.World.UnloadDelay = world.DefaultUnloadDelay
	c.World.RandomTickSpeed = world.DefaultRandomTickSpeed
	c.Viewers.MaximumRadius = 16
	c.Viewers.LoadsPerSecond = 256
	c.Viewers.LoadBatch = 16
	c.Forceload.File = "forceload.toml"
	return c
}
