package scheduler

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/dm-vev/chunkengine/server/block/cube"
)

func TestSchedulerRunsLowerPriorityFirst(t *testing.T) {
	s := New[string](Config{})
	s.Schedule(cube.Pos{1, 64, 1}, "five", 3, 5)
	s.Schedule(cube.Pos{1, 64, 2}, "one", 3, 1)

	for i := 0; i < 2; i++ {
		if batches := s.AdvanceTick(nil); len(batches) != 0 {
			t.Fatalf("expected no batches on tick %d, got %d", i+1, len(batches))
		}
	}
	batches := s.AdvanceTick(nil)
	if len(batches) != 1 {
		t.Fatalf("expected a single batch, got %d", len(batches))
	}
	got := batches[0].Ticks
	if len(got) != 2 || got[0].Payload != "one" || got[1].Payload != "five" {
		t.Fatalf("expected order [one five], got %v", got)
	}
}

func TestSchedulerOrderIsDeterministic(t *testing.T) {
	run := func() []int {
		s := New[int](Config{})
		r := rand.New(rand.NewPCG(7, 9))
		for i := 0; i < 200; i++ {
			pos := cube.Pos{r.IntN(64) - 32, 64, r.IntN(64) - 32}
			s.Schedule(pos, i, uint64(r.IntN(4)), int32(r.IntN(3)))
		}
		var order []int
		for s.Pending() > 0 {
			for _, b := range s.AdvanceTick(nil) {
				for _, tick := range b.Ticks {
					order = append(order, tick.Payload)
				}
			}
		}
		return order
	}
	first, second := run(), run()
	if len(first) != 200 {
		t.Fatalf("expected 200 executed ticks, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected identical order, runs differ at %d: %d != %d", i, first[i], second[i])
		}
	}
}

func TestSchedulerTicksWithinBatchKeepTotalOrder(t *testing.T) {
	s := New[int](Config{})
	for i := 0; i < 20; i++ {
		s.Schedule(cube.Pos{i, 0, 0}, i, 1, int32(i%4))
	}
	batches := s.AdvanceTick(nil)
	for _, b := range batches {
		for i := 1; i < len(b.Ticks); i++ {
			if b.Ticks[i-1].Compare(b.Ticks[i]) >= 0 {
				t.Fatalf("expected ticks in total order, got %v before %v", b.Ticks[i-1], b.Ticks[i])
			}
		}
	}
}

func TestSchedulerCoalescesPendingPayload(t *testing.T) {
	s := New[string](Config{})
	if !s.Schedule(cube.Pos{}, "flow", 5, 0) {
		t.Fatalf("expected first schedule to succeed")
	}
	if s.Schedule(cube.Pos{}, "flow", 1, 0) {
		t.Fatalf("expected duplicate schedule to be coalesced")
	}
	if !s.Schedule(cube.Pos{}, "fall", 1, 0) {
		t.Fatalf("expected different payload to be scheduled")
	}
	if got := s.Pending(); got != 2 {
		t.Fatalf("expected 2 pending ticks, got %d", got)
	}
}

func TestSchedulerHoldsTicksInChunksNotRunnable(t *testing.T) {
	s := New[int](Config{})
	s.Schedule(cube.Pos{0, 0, 0}, 1, 1, 0)
	s.Schedule(cube.Pos{100, 0, 0}, 2, 1, 0)
	frozen := cube.ChunkPos{6, 0}

	batches := s.AdvanceTick(func(c cube.ChunkPos) bool { return c != frozen })
	if len(batches) != 1 || batches[0].Ticks[0].Payload != 1 {
		t.Fatalf("expected only the runnable tick, got %v", batches)
	}
	if got := s.Pending(); got != 1 {
		t.Fatalf("expected held tick to stay pending, got %d", got)
	}
	batches = s.AdvanceTick(nil)
	if len(batches) != 1 || batches[0].Ticks[0].Payload != 2 {
		t.Fatalf("expected held tick to run once runnable, got %v", batches)
	}
}

func TestPartitionBatchesAreDisjoint(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	var ticks []OrderedTick[int]
	for i := 0; i < 300; i++ {
		ticks = append(ticks, OrderedTick[int]{
			Pos:      cube.Pos{r.IntN(400) - 200, 0, r.IntN(400) - 200},
			Payload:  i,
			Sequence: uint64(i),
		})
	}
	batches := PartitionBatches(ticks)
	total := 0
	for i, a := range batches {
		total += len(a.Ticks)
		for _, b := range batches[i+1:] {
			for _, ca := range a.Chunks {
				for _, cb := range b.Chunks {
					if cube.Chebyshev(ca, cb) <= 2 {
						t.Fatalf("expected disjoint footprints, chunks %v and %v overlap", ca, cb)
					}
				}
			}
		}
		if i > 0 && batches[i-1].Ticks[0].Sequence > a.Ticks[0].Sequence {
			t.Fatalf("expected batches ordered by first tick")
		}
	}
	if total != len(ticks) {
		t.Fatalf("expected %d ticks across batches, got %d", len(ticks), total)
	}
}

func TestPartitionBatchesJoinsNeighbours(t *testing.T) {
	ticks := []OrderedTick[int]{
		{Pos: cube.Pos{0, 0, 0}, Payload: 0},
		{Pos: cube.Pos{100, 0, 0}, Payload: 1},
		{Pos: cube.Pos{40, 0, 0}, Payload: 2},
	}
	// Chunk 0 and 2 share chunk 1 in their footprint, chunk 6 is on its own.
	batches := PartitionBatches(ticks)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0].Ticks) != 2 || batches[0].Ticks[0].Payload != 0 || batches[0].Ticks[1].Payload != 2 {
		t.Fatalf("expected first batch [0 2], got %v", batches[0].Ticks)
	}
	if !batches[0].Covers(cube.ChunkPos{1, 1}) || batches[0].Covers(cube.ChunkPos{4, 0}) {
		t.Fatalf("unexpected footprint for chunks %v", batches[0].Chunks)
	}
}

func TestSchedulerExtractRestore(t *testing.T) {
	s := New[int](Config{})
	s.Schedule(cube.Pos{1, 0, 1}, 1, 5, 0)
	s.Schedule(cube.Pos{2, 0, 2}, 2, 3, 0)
	s.Schedule(cube.Pos{20, 0, 2}, 3, 3, 0)

	ticks := s.Extract(cube.ChunkPos{0, 0})
	if len(ticks) != 2 || ticks[0].Payload != 2 || ticks[1].Payload != 1 {
		t.Fatalf("expected extracted ticks [2 1], got %v", ticks)
	}
	if s.Scheduled(cube.Pos{1, 0, 1}, 1) {
		t.Fatalf("expected extracted tick to no longer be pending")
	}
	s.Restore(ticks)
	if got := s.Pending(); got != 3 {
		t.Fatalf("expected 3 pending ticks after restore, got %d", got)
	}
	var order []int
	for i := 0; i < 5; i++ {
		for _, b := range s.AdvanceTick(nil) {
			for _, tick := range b.Ticks {
				order = append(order, tick.Payload)
			}
		}
	}
	if len(order) != 3 || order[2] != 1 {
		t.Fatalf("expected restored tick 1 to run last, got %v", order)
	}
}

func TestSchedulerRunExecutesEveryBatch(t *testing.T) {
	metrics := NewMetrics()
	s := New[int](Config{Workers: 2, Metrics: metrics})
	for i := 0; i < 8; i++ {
		s.Schedule(cube.Pos{i * 64, 0, 0}, i, 1, 0)
	}
	batches := s.AdvanceTick(nil)
	if len(batches) != 8 {
		t.Fatalf("expected 8 batches, got %d", len(batches))
	}
	var (
		mu   sync.Mutex
		seen = map[int]bool{}
	)
	err := s.Run(context.Background(), batches, func(_ context.Context, b Batch[int]) error {
		mu.Lock()
		defer mu.Unlock()
		for _, tick := range b.Ticks {
			seen[tick.Payload] = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(seen) != 8 {
		t.Fatalf("expected 8 executed ticks, got %d", len(seen))
	}
	if snap := metrics.Snapshot(); snap.Batches != 8 || snap.Executed != 8 || snap.Scheduled != 8 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
	if got := metrics.ExecutedIn(cube.ChunkPos{4, 0}); got != 1 {
		t.Fatalf("expected 1 tick executed in chunk (4, 0), got %d", got)
	}
}

func TestSchedulerRunReturnsError(t *testing.T) {
	s := New[int](Config{Workers: 1})
	s.Schedule(cube.Pos{}, 1, 1, 0)
	want := errors.New("boom")
	err := s.Run(context.Background(), s.AdvanceTick(nil), func(context.Context, Batch[int]) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
