package ticket

import "github.com/dm-vev/chunkengine/server/block/cube"

type levelEntry struct {
	pos   cube.ChunkPos
	level uint8
}

// levelQueue is a min-heap of positions by level, used with container/heap.
type levelQueue []levelEntry

func (q levelQueue) Len() int           { return len(q) }
func (q levelQueue) Less(i, j int) bool { return q[i].level < q[j].level }
func (q levelQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *levelQueue) Push(x any) {
	*q = append(*q, x.(levelEntry))
}

func (q *levelQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}
