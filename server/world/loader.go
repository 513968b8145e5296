package world

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Loader keeps the columns around a viewer loaded. It holds a ticket at the
// chunk of the viewer and borrows every column within its radius that was
// fetched with Load. A Loader is safe for concurrent use.
type Loader struct {
	l       *Level
	id      uuid.UUID
	radius  int
	limiter *rate.Limiter

	mu     sync.Mutex
	pos    ChunkPos
	moved  bool
	loaded map[ChunkPos]*Handle
	closed bool
}

// NewLoader creates a Loader for the Level passed with the view radius
// passed, in chunks. At most perSecond columns are fetched every second, with
// bursts of up to the same amount. A rate of zero or less disables pacing.
func NewLoader(l *Level, radius int, perSecond float64) *Loader {
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = max(1, int(math.Ceil(perSecond)))
	}
	return &Loader{
		l:       l,
		id:      uuid.New(),
		radius:  radius,
		limiter: rate.NewLimiter(limit, burst),
		loaded:  make(map[ChunkPos]*Handle),
	}
}

// ID returns the holder id of the tickets of the Loader.
func (lo *Loader) ID() uuid.UUID {
	return lo.id
}

// Radius returns the view radius of the Loader in chunks.
func (lo *Loader) Radius() int {
	return lo.radius
}

// Pos returns the chunk the Loader is currently at.
func (lo *Loader) Pos() ChunkPos {
	lo.mu.Lock()
	defer lo.mu.Unlock()
	return lo.pos
}

// Move moves the Loader to the position passed. If the Loader changed chunk,
// its ticket is moved and columns that are now outside of its radius are
// released.
func (lo *Loader) Move(pos mgl64.Vec3) {
	chunkPos := ChunkPos{int32(math.Floor(pos[0])) >> 4, int32(math.Floor(pos[2])) >> 4}

	lo.mu.Lock()
	defer lo.mu.Unlock()
	if lo.closed || (lo.moved && chunkPos == lo.pos) {
		return
	}
	level := lo.l.tickets.Config().ViewLevel(lo.radius)
	if lo.moved {
		lo.l.RemoveTicket(lo.id, lo.pos, level)
	}
	lo.l.AddTicket(lo.id, chunkPos, level)
	lo.pos, lo.moved = chunkPos, true

	for p, h := range lo.loaded {
		if !cube.WithinRadius(chunkPos, p, lo.radius) {
			h.Release()
			delete(lo.loaded, p)
		}
	}
}

// Load fetches up to n of the closest columns within the radius of the Loader
// that it did not fetch yet, waiting for the rate limit of the Loader between
// columns. Load returns the amount of columns loaded and the errors of
// columns that could not be fetched.
func (lo *Loader) Load(ctx context.Context, n int) (int, error) {
	lo.mu.Lock()
	if lo.closed || !lo.moved {
		lo.mu.Unlock()
		return 0, nil
	}
	centre := lo.pos
	var missing []ChunkPos
	for _, p := range cube.Cylinder(centre, lo.radius) {
		if len(missing) == n {
			break
		}
		if _, ok := lo.loaded[p]; !ok && !lo.l.absent(p) {
			missing = append(missing, p)
		}
	}
	lo.mu.Unlock()

	if len(missing) == 0 {
		return 0, nil
	}
	results := make(chan ChunkResult, len(missing))
	requested := 0
	for _, p := range missing {
		if err := lo.limiter.Wait(ctx); err != nil {
			break
		}
		lo.l.FetchChunks(ctx, []ChunkPos{p}, results)
		requested++
	}

	var (
		loaded int
		errs   []error
	)
	for i := range requested {
		var res ChunkResult
		select {
		case res = <-results:
		case <-ctx.Done():
			go releaseResults(results, requested-i)
			return loaded, errors.Join(append(errs, ctx.Err())...)
		}
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		if !lo.keep(res.Handle) {
			res.Handle.Release()
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}

// releaseResults releases the handles of the n results still to be sent to
// the channel passed. Results dropped by the Level are never sent, so it
// gives up after a minute.
func releaseResults(results <-chan ChunkResult, n int) {
	timeout := time.After(time.Minute)
	for range n {
		select {
		case res := <-results:
			if res.Handle != nil {
				res.Handle.Release()
			}
		case <-timeout:
			return
		}
	}
}

// keep stores the handle passed if its column is still within the radius of
// the Loader.
func (lo *Loader) keep(h *Handle) bool {
	lo.mu.Lock()
	defer lo.mu.Unlock()
	if lo.closed || !cube.WithinRadius(lo.pos, h.Pos(), lo.radius) {
		return false
	}
	if _, ok := lo.loaded[h.Pos()]; ok {
		return false
	}
	lo.loaded[h.Pos()] = h
	return true
}

// Chunk returns the handle of a column fetched by the Loader. The handle is
// owned by the Loader and must not be released by the caller.
func (lo *Loader) Chunk(pos ChunkPos) (*Handle, bool) {
	lo.mu.Lock()
	defer lo.mu.Unlock()
	h, ok := lo.loaded[pos]
	return h, ok
}

// Len returns the amount of columns held by the Loader.
func (lo *Loader) Len() int {
	lo.mu.Lock()
	defer lo.mu.Unlock()
	return len(lo.loaded)
}

// Close removes the ticket of the Loader and releases every column it holds.
func (lo *Loader) Close() {
	lo.mu.Lock()
	defer lo.mu.Unlock()
	if lo.closed {
		return
	}
	lo.closed = true
	if lo.moved {
		lo.l.RemoveTickets(lo.id)
	}
	for p, h := range lo.loaded {
		h.Release()
		delete(lo.loaded, p)
	}
}
