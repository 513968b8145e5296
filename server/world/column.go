package world

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// ColumnState is a stage in the lifecycle of a column held by a Level.
type ColumnState uint32

const (
	StateScheduled ColumnState = iota
	StateGenerating
	StateDeserializing
	StateLoaded
	StateMarkedForUnload
	StateSaving
	StateEvicted
)

func (s ColumnState) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateGenerating:
		return "generating"
	case StateDeserializing:
		return "deserializing"
	case StateLoaded:
		return "loaded"
	case StateMarkedForUnload:
		return "marked for unload"
	case StateSaving:
		return "saving"
	case StateEvicted:
		return "evicted"
	}
	return "unknown"
}

// column is the single in-memory copy of a chunk column. Its data is guarded
// by mu; the reference count of outstanding borrows by refMu.
type column struct {
	pos   ChunkPos
	state atomic.Uint32

	mu   sync.RWMutex
	data *chunk.Column
	// modified is set when the column changed since it was last stored.
	modified atomic.Bool

	refMu sync.Mutex
	refs  int
	idle  chan struct{}
	// revived is set when a borrow was made while the column was being
	// unloaded. The unload is then abandoned.
	revived bool
}

func newColumn(pos ChunkPos) *column {
	c := &column{pos: pos}
	c.state.Store(uint32(StateScheduled))
	return c
}

func (c *column) State() ColumnState {
	return ColumnState(c.state.Load())
}

func (c *column) setState(s ColumnState) {
	c.state.Store(uint32(s))
}

// acquire adds a borrow to the column.
func (c *column) acquire() {
	c.refMu.Lock()
	c.refs++
	if s := c.State(); s == StateMarkedForUnload || s == StateSaving {
		c.revived = true
	}
	c.refMu.Unlock()
}

// release removes a borrow added with acquire.
func (c *column) release() {
	c.refMu.Lock()
	c.refs--
	if c.refs == 0 && c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
	c.refMu.Unlock()
}

// waitIdle blocks until the column has no borrows left or the context is
// cancelled.
func (c *column) waitIdle(ctx context.Context) error {
	c.refMu.Lock()
	if c.refs == 0 {
		c.refMu.Unlock()
		return nil
	}
	if c.idle == nil {
		c.idle = make(chan struct{})
	}
	idle := c.idle
	c.refMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle is a borrow of a loaded column. The column is not evicted while a
// Handle to it is held. Release must be called once the Handle is no longer
// needed.
type Handle struct {
	c    *column
	once sync.Once
}

func newHandle(c *column) *Handle {
	c.acquire()
	return &Handle{c: c}
}

// Pos returns the position of the column.
func (h *Handle) Pos() ChunkPos {
	return h.c.pos
}

// Read calls f with the chunk of the column while holding its lock for
// reading. The chunk must not be retained after f returns.
func (h *Handle) Read(f func(c *chunk.Chunk)) {
	h.c.mu.RLock()
	defer h.c.mu.RUnlock()
	f(h.c.data.Chunk)
}

// Write calls f with the chunk of the column while holding its lock for
// writing. Light is not updated for changes made through Write; use
// Level.Exec to change blocks with light and block updates.
func (h *Handle) Write(f func(c *chunk.Chunk)) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	f(h.c.data.Chunk)
	h.c.modified.Store(true)
}

// Release releases the borrow. Calling Release more than once has no effect.
func (h *Handle) Release() {
	h.once.Do(h.c.release)
}
