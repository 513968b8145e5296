package scheduler

import (
	"sync"

	"github.com/dm-vev/chunkengine/server/block/cube"
)

// Metrics tracks scheduler counters for observability. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	mu sync.Mutex

	scheduled uint64
	coalesced uint64
	deferred  uint64
	batches   uint64
	largest   int
	executed  map[cube.ChunkPos]uint64
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{executed: make(map[cube.ChunkPos]uint64)}
}

// MetricsSnapshot is a copy of the counters held by Metrics.
type MetricsSnapshot struct {
	Scheduled, Coalesced, Deferred, Batches uint64
	// Executed is the total amount of ticks handed to batches.
	Executed uint64
	// LargestBatch is the largest amount of ticks seen in a single batch.
	LargestBatch int
}

func (m *Metrics) incScheduled() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.scheduled++
	m.mu.Unlock()
}

func (m *Metrics) incCoalesced() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.coalesced++
	m.mu.Unlock()
}

func (m *Metrics) addDeferred(n int) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	m.deferred += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) observeBatch(ticks []cube.Pos) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.batches++
	m.largest = max(m.largest, len(ticks))
	for _, pos := range ticks {
		m.executed[pos.ChunkPos()]++
	}
	m.mu.Unlock()
}

// ExecutedIn returns how many ticks were handed to batches in the chunk
// passed.
func (m *Metrics) ExecutedIn(c cube.ChunkPos) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executed[c]
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var executed uint64
	for _, n := range m.executed {
		executed += n
	}
	return MetricsSnapshot{
		Scheduled:    m.scheduled,
		Coalesced:    m.coalesced,
		Deferred:     m.deferred,
		Batches:      m.batches,
		Executed:     executed,
		LargestBatch: m.largest,
	}
}
