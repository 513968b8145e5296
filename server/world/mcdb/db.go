// Package mcdb implements a world.Provider that stores columns in a LevelDB
// database.
package mcdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// Config holds the settings of a DB. The zero value of Config is usable.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, slog.Default() is used.
	Log *slog.Logger
	// Range is the vertical range of the world stored. It defaults to
	// cube.Range{-64, 319}.
	Range cube.Range
	// LDBOptions holds LevelDB specific default options, such as the block
	// size or compression used in the database.
	LDBOptions *opt.Options
}

// DB implements a world provider for LevelDB databases. Every column is
// stored under a key made of its packed position followed by a tag byte.
type DB struct {
	conf Config
	ldb  *leveldb.DB
}

const (
	// keyColumn is the tag of the key holding the encoded column.
	keyColumn = 'C'
)

// versionKey holds the data version of the columns in the database.
var versionKey = []byte("~chunkengine:version")

// Open creates a new provider reading and writing from/to files under the
// path passed using the default options. If a database does not exist at
// that path yet, it is created.
func Open(dir string) (*DB, error) {
	var conf Config
	return conf.Open(dir)
}

// Open creates a new DB reading and writing from/to files under the path
// passed. If a database does not exist at that path yet, it is created.
func (conf Config) Open(dir string) (*DB, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Range == (cube.Range{}) {
		conf.Range = cube.Range{-64, 319}
	}
	if conf.LDBOptions == nil {
		conf.LDBOptions = new(opt.Options)
	}
	if conf.LDBOptions.Compression == opt.DefaultCompression {
		conf.LDBOptions.Compression = opt.FlateCompression
	}
	if conf.LDBOptions.BlockSize == 0 {
		conf.LDBOptions.BlockSize = 16 * opt.KiB
	}

	ldb, err := leveldb.OpenFile(filepath.Join(dir, "db"), conf.LDBOptions)
	if err != nil {
		return nil, fmt.Errorf("open db: leveldb: %w", err)
	}
	db := &DB{conf: conf, ldb: ldb}
	if err := db.checkVersion(); err != nil {
		_ = ldb.Close()
		return nil, err
	}
	return db, nil
}

// checkVersion writes the data version of new databases and logs a warning
// for databases written by a newer version.
func (db *DB) checkVersion() error {
	v, err := db.ldb.Get(versionKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		buf := binary.LittleEndian.AppendUint32(nil, chunk.DataVersion)
		return db.ldb.Put(versionKey, buf, nil)
	}
	if err != nil {
		return fmt.Errorf("read data version: %w", err)
	}
	if len(v) == 4 && binary.LittleEndian.Uint32(v) > chunk.DataVersion {
		db.conf.Log.Warn("database written by a newer version", "version", binary.LittleEndian.Uint32(v), "supported", chunk.DataVersion)
	}
	return nil
}

// LoadColumn reads the column at the position passed. world.ErrNotFound is
// returned if it was never stored.
func (db *DB) LoadColumn(pos world.ChunkPos) (*chunk.Column, error) {
	data, err := db.ldb.Get(index(pos, keyColumn), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, world.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read column %v: %w", pos, err)
	}
	col, err := chunk.Decode(data, pos, world.AirRuntimeID(), db.conf.Range)
	if err != nil {
		return nil, fmt.Errorf("%w: column %v: %w", world.ErrCorrupt, pos, err)
	}
	return col, nil
}

// StoreColumn writes the column passed at the position passed.
func (db *DB) StoreColumn(pos world.ChunkPos, col *chunk.Column) error {
	data, err := chunk.Encode(col, pos)
	if err != nil {
		return fmt.Errorf("encode column %v: %w", pos, err)
	}
	if err := db.ldb.Put(index(pos, keyColumn), data, nil); err != nil {
		return fmt.Errorf("write column %v: %w", pos, err)
	}
	return nil
}

// Columns calls f for the position of every column stored in the database.
func (db *DB) Columns(f func(pos world.ChunkPos) bool) error {
	it := db.ldb.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != 9 || key[8] != keyColumn {
			continue
		}
		if !f(cube.UnpackChunkPos(binary.LittleEndian.Uint64(key))) {
			break
		}
	}
	return it.Error()
}

// Close closes the provider, saving any file that might need to be saved,
// such as the database.
func (db *DB) Close() error {
	return db.ldb.Close()
}

// index returns the key of the record with the tag passed for the column at
// the position passed.
func index(pos world.ChunkPos, tag byte) []byte {
	b := binary.LittleEndian.AppendUint64(make([]byte, 0, 9), pos.Pack())
	return append(b, tag)
}
