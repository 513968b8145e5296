package scheduler

import (
	"container/heap"
	"context"
	"slices"
	"sync"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"golang.org/x/sync/errgroup"
)

// Scheduler holds delayed actions keyed by the tick they should run at. Every
// call to AdvanceTick moves the scheduler one tick forward and returns the
// actions that became due, partitioned into batches that touch disjoint sets
// of chunks. A Scheduler is safe for concurrent use.
type Scheduler[T comparable] struct {
	conf Config

	mu      sync.Mutex
	tick    uint64
	seq     uint64
	queue   tickQueue[T]
	pending map[tickKey[T]]struct{}
}

type tickKey[T comparable] struct {
	pos     cube.Pos
	payload T
}

// New creates a Scheduler using the Config passed.
func New[T comparable](conf Config) *Scheduler[T] {
	return &Scheduler[T]{
		conf:    conf.withDefaults(),
		pending: make(map[tickKey[T]]struct{}),
	}
}

// CurrentTick returns the tick the scheduler is currently at.
func (s *Scheduler[T]) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Pending returns the amount of ticks waiting to be run.
func (s *Scheduler[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Schedule inserts an action for the position passed that becomes due delay
// ticks after the current tick. Ticks scheduled with a delay of 0 run on the
// next call to AdvanceTick, like ticks with a delay of 1. Schedule returns
// false if the same payload is already pending at the position, in which case
// nothing is scheduled.
func (s *Scheduler[T]) Schedule(pos cube.Pos, payload T, delay uint64, priority int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tickKey[T]{pos: pos, payload: payload}
	if _, ok := s.pending[key]; ok {
		s.conf.Metrics.incCoalesced()
		return false
	}
	s.seq++
	heap.Push(&s.queue, OrderedTick[T]{
		Pos:         pos,
		Payload:     payload,
		ScheduledAt: s.tick + delay,
		Priority:    priority,
		Sequence:    s.seq,
	})
	s.pending[key] = struct{}{}
	s.conf.Metrics.incScheduled()
	return true
}

// Scheduled reports if the payload passed is pending at the position.
func (s *Scheduler[T]) Scheduled(pos cube.Pos, payload T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[tickKey[T]{pos: pos, payload: payload}]
	return ok
}

// AdvanceTick moves the scheduler to the next tick and removes every tick that
// is due by then, in their total order. Due ticks in chunks for which runnable
// returns false stay queued until a later tick. The extra ticks passed, such as
// random block ticks, are added after the due ticks. The result is partitioned
// into batches with PartitionBatches.
func (s *Scheduler[T]) AdvanceTick(runnable func(cube.ChunkPos) bool, extra ...OrderedTick[T]) []Batch[T] {
	s.mu.Lock()
	s.tick++
	var due, held []OrderedTick[T]
	for len(s.queue) > 0 && s.queue[0].ScheduledAt <= s.tick {
		t := heap.Pop(&s.queue).(OrderedTick[T])
		if runnable != nil && !runnable(t.Chunk()) {
			held = append(held, t)
			continue
		}
		delete(s.pending, tickKey[T]{pos: t.Pos, payload: t.Payload})
		due = append(due, t)
	}
	for _, t := range held {
		heap.Push(&s.queue, t)
	}
	s.mu.Unlock()

	s.conf.Metrics.addDeferred(len(held))
	return PartitionBatches(append(due, extra...))
}

// Extract removes every pending tick in the chunk passed and returns them in
// their total order.
func (s *Scheduler[T]) Extract(c cube.ChunkPos) []OrderedTick[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	var extracted []OrderedTick[T]
	kept := s.queue[:0]
	for _, t := range s.queue {
		if t.Chunk() == c {
			extracted = append(extracted, t)
			delete(s.pending, tickKey[T]{pos: t.Pos, payload: t.Payload})
			continue
		}
		kept = append(kept, t)
	}
	if len(extracted) == 0 {
		return nil
	}
	clear(s.queue[len(kept):])
	s.queue = kept
	heap.Init(&s.queue)
	slices.SortFunc(extracted, OrderedTick[T].Compare)
	return extracted
}

// Restore inserts ticks previously returned by Extract again, keeping their
// scheduled tick, priority and sequence. Ticks whose payload is already
// pending at their position are skipped.
func (s *Scheduler[T]) Restore(ticks []OrderedTick[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range ticks {
		key := tickKey[T]{pos: t.Pos, payload: t.Payload}
		if _, ok := s.pending[key]; ok {
			continue
		}
		if t.Sequence > s.seq {
			s.seq = t.Sequence
		}
		heap.Push(&s.queue, t)
		s.pending[key] = struct{}{}
	}
}

// Run executes the batches passed concurrently, using at most Config.Workers
// goroutines. The ticks of a single batch are passed to exec sequentially in
// their order. Run returns the first error returned by exec, after which
// batches that did not start yet are skipped.
func (s *Scheduler[T]) Run(ctx context.Context, batches []Batch[T], exec func(ctx context.Context, b Batch[T]) error) error {
	if len(batches) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.conf.Workers)
	for _, b := range batches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.conf.Metrics.observeBatch(b.positions())
			if err := exec(ctx, b); err != nil {
				s.conf.Log.Error("tick batch failed", "chunks", len(b.Chunks), "ticks", len(b.Ticks), "err", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Metrics returns the Metrics the scheduler reports to, which may be nil.
func (s *Scheduler[T]) Metrics() *Metrics {
	return s.conf.Metrics
}
