package world

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/light"
	"github.com/dm-vev/chunkengine/server/world/scheduler"
	"github.com/dm-vev/chunkengine/server/world/ticket"
	"golang.org/x/sync/semaphore"
)

// Config may be used to create a new Level. It holds a variety of fields that
// influence the Level. The zero value of Config is usable.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, slog.Default() is used.
	Log *slog.Logger
	// Dir is the root directory of the world. The session lock is held in this
	// directory for as long as the Level is open. If empty, no lock is
	// acquired.
	Dir string
	// Provider is the Provider implementation used to read and write columns.
	// If nil, NopProvider is used and nothing is persisted.
	Provider Provider
	// Generator generates columns that were not found in the Provider. If nil,
	// NopGenerator is used, leaving columns filled with air.
	Generator Generator
	// ReadOnly specifies if columns should be saved when they are evicted.
	ReadOnly bool
	// Range is the vertical range of the world. It defaults to cube.Range{-64,
	// 319}.
	Range cube.Range
	// GeneratorWorkers is the amount of goroutines generating columns. It
	// defaults to GOMAXPROCS.
	GeneratorWorkers int
	// GeneratorQueueSize is the amount of generation tasks that may be queued
	// before further requests wait for a place in the queue.
	GeneratorQueueSize int
	// IOWorkers bounds the amount of concurrent reads and writes to the
	// Provider.
	IOWorkers int
	// TickWorkers bounds the amount of tick batches executed concurrently.
	TickWorkers int
	// Tickets holds the levels used by the ticket manager.
	Tickets ticket.Config
	// Spawn is the chunk at which the spawn ticket is placed.
	Spawn ChunkPos
	// SpawnRadius is the radius in chunks around Spawn that is kept loaded.
	// The spawn ticket is placed at the same level as a viewer ticket with this
	// view distance, so 33 for the default radius of 10. A negative radius
	// disables the spawn ticket.
	SpawnRadius int
	// UnloadDelay is the amount of ticks a column stays loaded after no
	// ticket keeps it loaded anymore. It defaults to 40.
	UnloadDelay int
	// RandomTickSpeed is the amount of random blocks ticked per section of a
	// ticking column every tick. It defaults to 3. A negative value disables
	// random ticks.
	RandomTickSpeed int
	// WorldBorder is the distance in chunks from the origin beyond which no
	// columns exist. Zero means the world is unbounded.
	WorldBorder int
	// DisableTicking stops the Level from running its own tick loop. Level.Tick
	// must then be called manually.
	DisableTicking bool
	// Seed seeds the random ticks of the Level.
	Seed uint64
}

// Defaults applied by Config.New.
const (
	DefaultSpawnRadius     = 10
	DefaultUnloadDelay     = 40
	DefaultRandomTickSpeed = 3
)

// New creates a new Level using the Config conf. The Level's tick loop is
// started unless DisableTicking is set. An error is returned if the session
// lock of the world directory is held by another process.
func (conf Config) New() (*Level, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Provider == nil {
		conf.Provider = NopProvider{}
	}
	if conf.Generator == nil {
		conf.Generator = NopGenerator{}
	}
	if conf.Range == (cube.Range{}) {
		conf.Range = cube.Range{-64, 319}
	}
	if conf.GeneratorWorkers <= 0 {
		conf.GeneratorWorkers = runtime.GOMAXPROCS(0)
	}
	if conf.GeneratorQueueSize <= 0 {
		conf.GeneratorQueueSize = conf.GeneratorWorkers * 64
	}
	if conf.IOWorkers <= 0 {
		conf.IOWorkers = 4
	}
	if conf.SpawnRadius == 0 {
		conf.SpawnRadius = DefaultSpawnRadius
	}
	if conf.UnloadDelay <= 0 {
		conf.UnloadDelay = DefaultUnloadDelay
	}
	if conf.RandomTickSpeed == 0 {
		conf.RandomTickSpeed = DefaultRandomTickSpeed
	}

	var lock *sessionLock
	if conf.Dir != "" {
		if err := os.MkdirAll(conf.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create world directory: %w", err)
		}
		var err error
		if lock, err = acquireSessionLock(conf.Dir); err != nil {
			return nil, err
		}
	}

	l := &Level{
		conf:           conf,
		lock:           lock,
		io:             semaphore.NewWeighted(int64(conf.IOWorkers)),
		tickets:        ticket.New(conf.Tickets),
		metrics:        NewMetrics(),
		queue:          make(chan transaction, 128),
		generatorQueue: make(chan generationTask, conf.GeneratorQueueSize),
		closing:        make(chan struct{}),
		ticking:        make(map[ChunkPos]struct{}),
		unloadQueue:    make(map[ChunkPos]uint64),
	}
	for i := range l.shards {
		l.shards[i].columns = make(map[ChunkPos]*column)
	}
	l.sched = scheduler.New[tickPayload](scheduler.Config{
		Log:     conf.Log,
		Workers: conf.TickWorkers,
		Metrics: scheduler.NewMetrics(),
	})
	l.light = light.New(light.Config{
		Log:     conf.Log,
		Storage: lightStorage{l: l},
		Blocks:  lightBlocks{},
	})
	l.random = newRandomTicker(conf.Seed)

	for i := 0; i < conf.GeneratorWorkers; i++ {
		l.running.Add(1)
		go l.generatorWorker()
	}
	if conf.SpawnRadius > 0 {
		l.tickets.Add(SpawnHolder, conf.Spawn, l.tickets.Config().ViewLevel(conf.SpawnRadius))
	}
	if !conf.DisableTicking {
		l.running.Add(1)
		go ticker{interval: tickInterval}.tickLoop(l)
	}
	return l, nil
}
