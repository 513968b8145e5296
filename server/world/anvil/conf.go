package anvil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dm-vev/chunkengine/server/block/cube"
)

// Config holds the settings of a Provider. The zero value of Config is
// usable.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, slog.Default() is used.
	Log *slog.Logger
	// Range is the vertical range of the world the Provider stores columns
	// of. It defaults to cube.Range{-64, 319}.
	Range cube.Range
	// Compression is the compression used for columns written. Columns
	// written with any supported compression can be read.
	Compression Compression
	// MaxOpenRegions is the amount of region files kept open at a time. It
	// defaults to 32.
	MaxOpenRegions int
}

// Open opens a Provider storing region files in the region directory of the
// world directory passed, creating it if needed.
func (conf Config) Open(dir string) (*Provider, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Range == (cube.Range{}) {
		conf.Range = cube.Range{-64, 319}
	}
	if conf.Compression == 0 {
		conf.Compression = CompressionZlib
	}
	if conf.MaxOpenRegions <= 0 {
		conf.MaxOpenRegions = 32
	}
	regionDir := filepath.Join(dir, "region")
	if err := os.MkdirAll(regionDir, 0o755); err != nil {
		return nil, fmt.Errorf("create region directory: %w", err)
	}
	return &Provider{
		conf:    conf,
		dir:     regionDir,
		regions: make(map[regionPos]*regionFile),
	}, nil
}

// Open opens a Provider with the default Config in the world directory
// passed.
func Open(dir string) (*Provider, error) {
	var conf Config
	return conf.Open(dir)
}
