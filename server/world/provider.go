package world

import (
	"errors"

	"github.com/dm-vev/chunkengine/server/world/chunk"
)

var (
	// ErrNotFound is returned by a Provider if no column is stored at the
	// position requested. The column is then generated.
	ErrNotFound = errors.New("world: column not found")
	// ErrCorrupt is returned by a Provider if the column stored at the
	// position requested could not be read. The column is then regenerated.
	ErrCorrupt = errors.New("world: column corrupt")
	// ErrSessionLocked is returned when opening a Level in a directory whose
	// session lock is held by another Level or process.
	ErrSessionLocked = errors.New("world: session locked by another process")
)

// Provider represents a value that may provide columns to a Level. Providers
// are called from multiple goroutines at a time, but never for the same
// position concurrently.
type Provider interface {
	// LoadColumn reads the column at the position passed. If no column is
	// stored there, an error wrapping ErrNotFound must be returned. Records
	// that cannot be decoded must produce an error wrapping ErrCorrupt.
	LoadColumn(pos ChunkPos) (*chunk.Column, error)
	// StoreColumn writes the column passed at the position passed.
	StoreColumn(pos ChunkPos, col *chunk.Column) error
	// Close closes the Provider, flushing anything that is buffered.
	Close() error
}

// NopProvider implements a Provider that does not perform any disk I/O. It
// stores nothing and never has a column available.
type NopProvider struct{}

func (NopProvider) LoadColumn(ChunkPos) (*chunk.Column, error) { return nil, ErrNotFound }
func (NopProvider) StoreColumn(ChunkPos, *chunk.Column) error  { return nil }
func (NopProvider) Close() error                               { return nil }

// Generator handles the generation of columns that do not exist in the
// Provider yet.
type Generator interface {
	// GenerateChunk fills the empty chunk passed with the terrain at the
	// position passed. GenerateChunk is called from multiple goroutines at a
	// time. An error fails the request that caused the generation.
	GenerateChunk(pos ChunkPos, c *chunk.Chunk) error
}

// NopGenerator is a Generator that leaves chunks empty.
type NopGenerator struct{}

func (NopGenerator) GenerateChunk(ChunkPos, *chunk.Chunk) error { return nil }

// AirRuntimeID returns the runtime ID of air, which Providers pass to
// chunk.Decode.
func AirRuntimeID() uint32 {
	return airRID
}
