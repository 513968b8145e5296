package scheduler

import (
	"cmp"

	"github.com/dm-vev/chunkengine/server/block/cube"
)

// OrderedTick is a delayed action at a block position. Ticks are totally
// ordered by the tick they are scheduled at, then by priority (lower first),
// then by the order in which they were scheduled.
type OrderedTick[T comparable] struct {
	Pos         cube.Pos
	Payload     T
	ScheduledAt uint64
	Priority    int32
	Sequence    uint64
}

// Chunk returns the position of the chunk the tick targets.
func (t OrderedTick[T]) Chunk() cube.ChunkPos {
	return t.Pos.ChunkPos()
}

// Compare returns -1 if t runs before o, 1 if it runs after and 0 if both are
// equal in order.
func (t OrderedTick[T]) Compare(o OrderedTick[T]) int {
	if c := cmp.Compare(t.ScheduledAt, o.ScheduledAt); c != 0 {
		return c
	}
	if c := cmp.Compare(t.Priority, o.Priority); c != 0 {
		return c
	}
	return cmp.Compare(t.Sequence, o.Sequence)
}

// tickQueue is a min-heap of ticks in their total order.
type tickQueue[T comparable] []OrderedTick[T]

func (q tickQueue[T]) Len() int           { return len(q) }
func (q tickQueue[T]) Less(i, j int) bool { return q[i].Compare(q[j]) < 0 }
func (q tickQueue[T]) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *tickQueue[T]) Push(x any) {
	*q = append(*q, x.(OrderedTick[T]))
}

func (q *tickQueue[T]) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	*q = old[:n-1]
	return t
}
