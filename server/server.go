package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dm-vev/chunkengine/server/query"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/scheduler"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Server serves a single Level. It keeps the columns around its viewers and
// its forced chunks loaded, and answers status queries.
type Server struct {
	conf    Config
	level   *world.Level
	forced  *ForcedChunks
	started time.Time
	query   *query.Listener

	vmu     sync.Mutex
	viewers map[uuid.UUID]*world.Loader

	once   sync.Once
	closed chan struct{}
	err    error
}

func newServer(conf Config) (*Server, error) {
	l, err := conf.World.New()
	if err != nil {
		if conf.World.Provider != nil {
			_ = conf.World.Provider.Close()
		}
		return nil, fmt.Errorf("create level: %w", err)
	}
	srv := &Server{
		conf:    conf,
		level:   l,
		started: time.Now(),
		viewers: make(map[uuid.UUID]*world.Loader),
		closed:  make(chan struct{}),
	}
	if srv.forced, err = LoadForcedChunks(conf.ForceloadFile, l); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("load forced chunks: %w", err)
	}
	if conf.QueryAddress != "" {
		if srv.query, err = query.Listen(conf.QueryAddress, conf.Log, srv.queryData); err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("listen for queries: %w", err)
		}
	}
	return srv, nil
}

// Level returns the Level served by the Server.
func (srv *Server) Level() *world.Level {
	return srv.level
}

// StartTime returns the time at which the Server was created.
func (srv *Server) StartTime() time.Time {
	return srv.started
}

// ForcedChunks returns the forced chunks of the Server.
func (srv *Server) ForcedChunks() *ForcedChunks {
	return srv.forced
}

// AddViewer adds a viewer with the id passed at the position passed, keeping
// the columns within the radius passed loaded. The radius is capped at the
// maximum view radius. A viewer already present with the same id is replaced.
func (srv *Server) AddViewer(id uuid.UUID, pos mgl64.Vec3, radius int) *world.Loader {
	radius = min(max(radius, 0), srv.conf.MaxViewRadius)
	lo := world.NewLoader(srv.level, radius, srv.conf.LoadsPerSecond)
	lo.Move(pos)

	srv.vmu.Lock()
	old, ok := srv.viewers[id]
	srv.viewers[id] = lo
	srv.vmu.Unlock()
	if ok {
		old.Close()
	}
	srv.conf.Log.Debug("Viewer added.", "id", id, "radius", radius)
	return lo
}

// MoveViewer moves the viewer with the id passed. It returns false if no such
// viewer exists.
func (srv *Server) MoveViewer(id uuid.UUID, pos mgl64.Vec3) bool {
	srv.vmu.Lock()
	lo, ok := srv.viewers[id]
	srv.vmu.Unlock()
	if ok {
		lo.Move(pos)
	}
	return ok
}

// RemoveViewer removes the viewer with the id passed, releasing the columns
// it kept loaded. It returns false if no such viewer exists.
func (srv *Server) RemoveViewer(id uuid.UUID) bool {
	srv.vmu.Lock()
	lo, ok := srv.viewers[id]
	delete(srv.viewers, id)
	srv.vmu.Unlock()
	if ok {
		lo.Close()
		srv.conf.Log.Debug("Viewer removed.", "id", id)
	}
	return ok
}

// ViewerCount returns the amount of viewers of the Server.
func (srv *Server) ViewerCount() int {
	srv.vmu.Lock()
	defer srv.vmu.Unlock()
	return len(srv.viewers)
}

// loaders returns the loaders of all viewers.
func (srv *Server) loaders() []*world.Loader {
	srv.vmu.Lock()
	defer srv.vmu.Unlock()
	loaders := make([]*world.Loader, 0, len(srv.viewers))
	for _, lo := range srv.viewers {
		loaders = append(loaders, lo)
	}
	return loaders
}

// Run loads the columns around viewers until the context is cancelled or the
// Server is closed. Columns are requested in batches every tick.
func (srv *Server) Run(ctx context.Context) error {
	t := time.NewTicker(time.Second / 20)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-srv.closed:
			return nil
		case <-t.C:
			srv.loadViewers(ctx)
		}
	}
}

// loadViewers requests the next batch of columns of every viewer.
func (srv *Server) loadViewers(ctx context.Context) {
	var wg sync.WaitGroup
	for _, lo := range srv.loaders() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lo.Load(ctx, srv.conf.LoadBatch); err != nil && ctx.Err() == nil {
				srv.conf.Log.Error("load viewer columns: "+err.Error(), "id", lo.ID())
			}
		}()
	}
	wg.Wait()
}

// Status holds a snapshot of the state of a Server.
type Status struct {
	Uptime        time.Duration
	LoadedColumns int
	Viewers       int
	ForcedChunks  int
	TPS           float64
	CurrentTick   uint64
	Level         world.MetricsSnapshot
	Scheduler     scheduler.MetricsSnapshot
}

// Status returns a snapshot of the state of the Server.
func (srv *Server) Status() Status {
	return Status{
		Uptime:        time.Since(srv.started),
		LoadedColumns: srv.level.LoadedCount(),
		Viewers:       srv.ViewerCount(),
		ForcedChunks:  srv.forced.Len(),
		TPS:           srv.level.TPS(),
		CurrentTick:   srv.level.CurrentTick(),
		Level:         srv.level.Metrics().Snapshot(),
		Scheduler:     srv.level.SchedulerMetrics(),
	}
}

// Save saves all modified columns of the Level.
func (srv *Server) Save() error {
	return srv.level.Save()
}

// CollectGarbage unloads all columns that no ticket keeps loaded and returns
// the amount of columns unloaded.
func (srv *Server) CollectGarbage() int {
	return srv.level.CollectGarbage()
}

// Close closes all viewers and the query listener, and closes the Level,
// saving it and releasing its session lock. Close may be called multiple
// times and always returns the error of the first call.
func (srv *Server) Close() error {
	srv.once.Do(func() {
		close(srv.closed)
		srv.vmu.Lock()
		for id, lo := range srv.viewers {
			lo.Close()
			delete(srv.viewers, id)
		}
		srv.vmu.Unlock()

		var errs []error
		if srv.query != nil {
			errs = append(errs, srv.query.Close())
		}
		errs = append(errs, srv.level.Close())
		srv.err = errors.Join(errs...)
	})
	return srv.err
}

// Closed returns a channel that is closed once Close was called.
func (srv *Server) Closed() <-chan struct{} {
	return srv.closed
}
