package world

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// ChunkResult is the result of fetching a single column with
// Level.FetchChunks. If Err is nil, Handle holds a borrow of the column that
// must be released.
type ChunkResult struct {
	Pos    ChunkPos
	Handle *Handle
	Err    error
}

// FetchChunks loads the columns at the positions passed and sends a result
// for each of them to the channel passed, in the order in which they become
// available. Columns that are already loaded are sent right away; others are
// read from the Provider or generated. Concurrent requests for the same
// column share a single load. FetchChunks does not block; results are sent
// from other goroutines, so that a channel with a small buffer slows down
// delivery rather than queueing results. Results that cannot be sent before
// ctx is done or the Level starts closing are dropped and their borrows
// released.
func (l *Level) FetchChunks(ctx context.Context, positions []ChunkPos, results chan<- ChunkResult) {
	var ready []*Handle
	for _, pos := range positions {
		if c, ok := l.resident(pos); ok {
			ready = append(ready, newHandle(c))
			c.release()
			continue
		}
		l.pending.Add(1)
		go func() {
			defer l.pending.Done()
			h, err := l.fetch(ctx, pos)
			l.deliver(ctx, results, ChunkResult{Pos: pos, Handle: h, Err: err})
		}()
	}
	if len(ready) == 0 {
		return
	}
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		for _, h := range ready {
			l.deliver(ctx, results, ChunkResult{Pos: h.Pos(), Handle: h})
		}
	}()
}

// deliver sends a result to the channel passed. If ctx is done or the Level
// is closing first, the result is dropped and its borrow released.
func (l *Level) deliver(ctx context.Context, results chan<- ChunkResult, res ChunkResult) {
	select {
	case results <- res:
		return
	case <-ctx.Done():
	case <-l.closing:
	}
	if res.Handle != nil {
		res.Handle.Release()
	}
}

// resident returns the column at the position passed with a borrow added if
// it is loaded. The borrow must be released.
func (l *Level) resident(pos ChunkPos) (*column, bool) {
	s := l.shard(pos)
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.columns[pos]
	if !ok {
		return nil, false
	}
	c.acquire()
	return c, true
}

// fetch returns a Handle to the column at the position passed, loading it if
// needed.
func (l *Level) fetch(ctx context.Context, pos ChunkPos) (*Handle, error) {
	for {
		if c, ok := l.resident(pos); ok {
			h := newHandle(c)
			c.release()
			return h, nil
		}
		if l.absent(pos) {
			return nil, fmt.Errorf("fetch column %v: outside of world border", pos)
		}
		ch := l.loads.DoChan(strconv.FormatUint(pos.Pack(), 36), func() (any, error) {
			return nil, l.loadColumn(pos)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		// The column was loaded, but may have been evicted again before a
		// borrow could be taken, in which case it is loaded once more.
	}
}

// load starts loading the column at the position passed without borrowing it.
// Errors are logged.
func (l *Level) load(pos ChunkPos) {
	if _, ok := l.column(pos); ok || l.absent(pos) || l.closed() {
		return
	}
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		_, err, _ := l.loads.Do(strconv.FormatUint(pos.Pack(), 36), func() (any, error) {
			return nil, l.loadColumn(pos)
		})
		if err != nil {
			l.conf.Log.Error("load column: "+err.Error(), "X", pos[0], "Z", pos[1])
		}
	}()
}

// loadColumn reads or generates the column at the position passed and adds it
// to the column map. It must only be called through the singleflight group
// of the Level, so that a column is never loaded twice at the same time.
func (l *Level) loadColumn(pos ChunkPos) error {
	if _, ok := l.column(pos); ok {
		return nil
	}
	if l.closed() {
		return fmt.Errorf("load column %v: level closed", pos)
	}
	c := newColumn(pos)

	c.setState(StateDeserializing)
	data, err := l.readColumn(pos)
	fresh := false
	switch {
	case err == nil:
		l.metrics.incLoaded()
	case errors.Is(err, ErrNotFound):
		fresh = true
	case errors.Is(err, ErrCorrupt) || errors.Is(err, chunk.ErrMalformed):
		l.conf.Log.Error("read column: "+err.Error()+", regenerating", "X", pos[0], "Z", pos[1])
		l.metrics.incCorrupt()
		fresh = true
	default:
		l.metrics.incFailed()
		return fmt.Errorf("read column %v: %w", pos, err)
	}

	if fresh {
		c.setState(StateGenerating)
		if data, err = l.generate(pos); err != nil {
			l.metrics.incFailed()
			return err
		}
		c.modified.Store(true)
	}
	c.data = data

	l.restoreTicks(data)
	c.setState(StateLoaded)

	s := l.shard(pos)
	s.mu.Lock()
	s.columns[pos] = c
	s.mu.Unlock()

	if fresh {
		l.report(pos, eventGenerated)
	} else {
		l.report(pos, eventLoaded)
	}
	return nil
}

// readColumn reads the column at the position passed from the Provider,
// bounding the amount of concurrent reads.
func (l *Level) readColumn(pos ChunkPos) (*chunk.Column, error) {
	if err := l.io.Acquire(context.Background(), 1); err != nil {
		return nil, err
	}
	defer l.io.Release(1)
	col, err := l.conf.Provider.LoadColumn(pos)
	if err != nil {
		return nil, err
	}
	if col == nil || col.Chunk == nil {
		return nil, fmt.Errorf("%w: provider returned no chunk", ErrCorrupt)
	}
	if r := col.Chunk.Range(); r != l.conf.Range {
		return nil, fmt.Errorf("%w: column range %v does not match world range %v", ErrCorrupt, r, l.conf.Range)
	}
	return col, nil
}
