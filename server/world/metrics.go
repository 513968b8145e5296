package world

import "sync"

// Metrics tracks the column lifecycle counters of a Level. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	mu sync.Mutex

	loaded    uint64
	generated uint64
	corrupt   uint64
	failed    uint64
	saved     uint64
	evicted   uint64
	revived   uint64
	ticks     uint64

	generatedAt map[ChunkPos]uint64
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{generatedAt: make(map[ChunkPos]uint64)}
}

// MetricsSnapshot is a copy of the counters held by Metrics.
type MetricsSnapshot struct {
	// Loaded is the amount of columns read from the Provider.
	Loaded uint64
	// Generated is the amount of columns produced by the Generator.
	Generated uint64
	// Corrupt is the amount of stored columns that could not be decoded and
	// were regenerated.
	Corrupt uint64
	// Failed is the amount of loads that failed.
	Failed uint64
	Saved  uint64
	// Evicted is the amount of columns removed from memory.
	Evicted uint64
	// Revived is the amount of unloads abandoned because the column was used
	// again.
	Revived uint64
	// Ticks is the amount of scheduled and random ticks executed.
	Ticks uint64
}

func (m *Metrics) incLoaded() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.loaded++
	m.mu.Unlock()
}

func (m *Metrics) incGenerated(pos ChunkPos) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.generated++
	m.generatedAt[pos]++
	m.mu.Unlock()
}

func (m *Metrics) incCorrupt() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.corrupt++
	m.mu.Unlock()
}

func (m *Metrics) incFailed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
}

func (m *Metrics) incSaved() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.saved++
	m.mu.Unlock()
}

func (m *Metrics) incEvicted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.evicted++
	m.mu.Unlock()
}

func (m *Metrics) incRevived() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.revived++
	m.mu.Unlock()
}

func (m *Metrics) addTicks(n int) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	m.ticks += uint64(n)
	m.mu.Unlock()
}

// GenerationsAt returns how many times the column at the position passed was
// generated.
func (m *Metrics) GenerationsAt(pos ChunkPos) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generatedAt[pos]
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Loaded:    m.loaded,
		Generated: m.generated,
		Corrupt:   m.corrupt,
		Failed:    m.failed,
		Saved:     m.saved,
		Evicted:   m.evicted,
		Revived:   m.revived,
		Ticks:     m.ticks,
	}
}
