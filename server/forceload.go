package server

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dm-vev/chunkengine/server/world"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml"
)

// ForceloadHolder is the holder of the tickets of forced chunks.
var ForceloadHolder = uuid.NewSHA1(uuid.NameSpaceOID, []byte("chunkengine:forceload"))

// ForcedChunks is a set of chunks that are kept loaded and ticking for as long
// as the server runs. Entries are persisted in a TOML file if one is set.
type ForcedChunks struct {
	mu       sync.Mutex
	chunks   map[world.ChunkPos]struct{}
	filePath string
	l        *world.Level
}

type forceloadFile struct {
	Chunks []forcedChunk `toml:"chunks"`
}

type forcedChunk struct {
	X int32 `toml:"x"`
	Z int32 `toml:"z"`
}

// LoadForcedChunks loads the forced chunks stored in the file at the path
// passed and adds a ticket for each of them to the Level. If the file does not
// exist yet, it will be created with an empty list. If the path is empty,
// forced chunks are kept in memory only.
func LoadForcedChunks(path string, l *world.Level) (*ForcedChunks, error) {
	f := &ForcedChunks{
		chunks:   make(map[world.ChunkPos]struct{}),
		filePath: path,
		l:        l,
	}
	if path == "" {
		return f, nil
	}
	if err := f.reloadFromDisk(); err != nil {
		return nil, err
	}
	for pos := range f.chunks {
		f.l.AddTicket(ForceloadHolder, pos, f.level())
	}
	return f, nil
}

// level returns the ticket level of forced chunks.
func (f *ForcedChunks) level() uint8 {
	return f.l.Tickets().Config().TickingLevel
}

// Add forces the chunk passed to stay loaded and ticking. The returned bool
// indicates if the chunk was newly added.
func (f *ForcedChunks) Add(pos world.ChunkPos) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.chunks[pos]; exists {
		return false, nil
	}
	f.chunks[pos] = struct{}{}
	if err := f.writeLocked(); err != nil {
		delete(f.chunks, pos)
		return false, err
	}
	f.l.AddTicket(ForceloadHolder, pos, f.level())
	return true, nil
}

// Remove stops forcing the chunk passed. The returned bool indicates if the
// chunk was forced before the call.
func (f *ForcedChunks) Remove(pos world.ChunkPos) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.chunks[pos]; !exists {
		return false, nil
	}
	delete(f.chunks, pos)
	if err := f.writeLocked(); err != nil {
		f.chunks[pos] = struct{}{}
		return false, err
	}
	f.l.RemoveTicket(ForceloadHolder, pos, f.level())
	return true, nil
}

// Contains reports if the chunk passed is forced.
func (f *ForcedChunks) Contains(pos world.ChunkPos) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.chunks[pos]
	return ok
}

// Chunks returns all forced chunks sorted by x and then by z.
func (f *ForcedChunks) Chunks() []world.ChunkPos {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedLocked()
}

// Len returns the amount of forced chunks.
func (f *ForcedChunks) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks)
}

func (f *ForcedChunks) reloadFromDisk() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloadLocked()
}

func (f *ForcedChunks) reloadLocked() error {
	data := forceloadFile{}
	contents, err := os.ReadFile(f.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.chunks = make(map[world.ChunkPos]struct{})
			return f.writeLocked()
		}
		return fmt.Errorf("read forced chunks: %w", err)
	}
	if len(contents) != 0 {
		if err := toml.Unmarshal(contents, &data); err != nil {
			return fmt.Errorf("decode forced chunks: %w", err)
		}
	}
	f.chunks = make(map[world.ChunkPos]struct{}, len(data.Chunks))
	for _, c := range data.Chunks {
		f.chunks[world.ChunkPos{c.X, c.Z}] = struct{}{}
	}
	return nil
}

func (f *ForcedChunks) writeLocked() error {
	if f.filePath == "" {
		return nil
	}
	dir := filepath.Dir(f.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return fmt.Errorf("create forced chunks directory: %w", err)
		}
	}
	sorted := f.sortedLocked()
	data := forceloadFile{Chunks: make([]forcedChunk, len(sorted))}
	for i, pos := range sorted {
		data.Chunks[i] = forcedChunk{X: pos[0], Z: pos[1]}
	}
	encoded, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode forced chunks: %w", err)
	}
	if err := os.WriteFile(f.filePath, encoded, 0644); err != nil {
		return fmt.Errorf("write forced chunks: %w", err)
	}
	return nil
}

func (f *ForcedChunks) sortedLocked() []world.ChunkPos {
	positions := make([]world.ChunkPos, 0, len(f.chunks))
	for pos := range f.chunks {
		positions = append(positions, pos)
	}
	slices.SortFunc(positions, func(a, b world.ChunkPos) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	return positions
}
