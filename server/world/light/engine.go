package light

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// Storage resolves chunks by their position for the Engine. The Engine never
// holds references to chunks outside of a single call to Propagate.
type Storage interface {
	// Chunk returns the loaded chunk at the position passed with its lock
	// acquired for writing, together with a function that releases the lock.
	// release is passed true if any light value of the chunk was changed. ok
	// is false if the chunk is not loaded.
	Chunk(pos cube.ChunkPos) (c *chunk.Chunk, release func(written bool), ok bool)
	// Absent reports if the chunk at the position passed will never be
	// loaded, for example because it is outside of the world border.
	Absent(pos cube.ChunkPos) bool
}

// Blocks provides the light properties of block states.
type Blocks interface {
	// Opacity returns how much light is lost when passing through the block
	// state. Fully opaque blocks return 15.
	Opacity(rid uint32) uint8
	// Emission returns the block light level emitted by the block state.
	Emission(rid uint32) uint8
}

// Config holds the dependencies of an Engine.
type Config struct {
	Log     *slog.Logger
	Storage Storage
	Blocks  Blocks
}

// Engine maintains the block light and sky light of loaded chunks. Changes are
// recorded as they happen and applied in bulk by Propagate. Recording is safe
// for concurrent use; Propagate must only be called from a single goroutine at
// a time.
type Engine struct {
	conf Config

	mu      sync.Mutex
	changes map[cube.Pos]bool
	loads   map[cube.ChunkPos]bool

	obligations *obligations
}

// New creates an Engine using the Config passed. Storage and Blocks must be
// set.
func New(conf Config) *Engine {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Storage == nil || conf.Blocks == nil {
		panic("light: engine requires storage and blocks")
	}
	return &Engine{
		conf:        conf,
		changes:     make(map[cube.Pos]bool),
		loads:       make(map[cube.ChunkPos]bool),
		obligations: newObligations(),
	}
}

// OnBlockChange records that the block at the position passed changed. The
// light around the position is recomputed by the next call to Propagate from
// the blocks present at that time. Block light is always recomputed; sky light
// only when the opacity of the block changed.
func (e *Engine) OnBlockChange(pos cube.Pos, oldOpacity, newOpacity, emitted uint8) {
	e.mu.Lock()
	e.changes[pos] = e.changes[pos] || oldOpacity != newOpacity
	e.mu.Unlock()
}

// ChunkLoaded records that the chunk at the position passed was loaded. Fresh
// chunks have no light yet and get their initial light by the next call to
// Propagate. Light across the borders with neighbouring chunks is reseeded and
// updates deferred while the chunk was unloaded are replayed.
func (e *Engine) ChunkLoaded(pos cube.ChunkPos, fresh bool) {
	e.mu.Lock()
	e.loads[pos] = e.loads[pos] || fresh
	e.mu.Unlock()
}

// Pending returns the amount of recorded changes and loads not yet applied by
// Propagate and the amount of updates deferred for unloaded chunks.
func (e *Engine) Pending() (queued, deferred int) {
	e.mu.Lock()
	queued = len(e.changes) + len(e.loads)
	e.mu.Unlock()
	return queued, e.obligations.Len()
}

// Propagate applies all recorded changes and loads. Light that decreased is
// removed first, after which light is spread out again until no value
// changes. Calling Propagate without any recorded changes does nothing.
func (e *Engine) Propagate() {
	e.mu.Lock()
	changes, loads := e.changes, e.loads
	if len(changes) == 0 && len(loads) == 0 {
		e.mu.Unlock()
		return
	}
	e.changes, e.loads = make(map[cube.Pos]bool), make(map[cube.ChunkPos]bool)
	e.mu.Unlock()

	p := newPass(e)
	defer p.release()

	loaded := make([]cube.ChunkPos, 0, len(loads))
	for pos := range loads {
		loaded = append(loaded, pos)
	}
	slices.SortFunc(loaded, func(a, b cube.ChunkPos) int { return cmp.Compare(a.Morton(), b.Morton()) })
	for _, pos := range loaded {
		p.seedChunk(pos, loads[pos])
	}

	positions := make([]cube.Pos, 0, len(changes))
	for pos := range changes {
		positions = append(positions, pos)
	}
	slices.SortFunc(positions, comparePos)
	for _, pos := range positions {
		p.seedChange(pos, changes[pos])
	}
	p.run()
}

// PruneAbsent drops deferred updates for chunks that will never be loaded and
// returns how many were dropped.
func (e *Engine) PruneAbsent() int {
	n := e.obligations.Prune(e.conf.Storage.Absent)
	if n > 0 {
		e.conf.Log.Debug("dropped light updates for absent chunks", "count", n)
	}
	return n
}

func comparePos(a, b cube.Pos) int {
	for i := range a {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
