package scheduler

import (
	"cmp"
	"slices"

	"github.com/dm-vev/chunkengine/server/block/cube"
)

// Batch is a group of ticks that may be executed concurrently with every
// other Batch returned by the same call to AdvanceTick: no two batches have a
// tick within one chunk of each other's chunks.
type Batch[T comparable] struct {
	// Ticks holds the ticks of the batch in the order they must run.
	Ticks []OrderedTick[T]
	// Chunks holds the distinct chunks the ticks are in, sorted by their
	// Morton code.
	Chunks []cube.ChunkPos
}

// Covers reports if the chunk passed is within the footprint of the batch,
// which is every chunk holding a tick and all chunks directly around it.
func (b Batch[T]) Covers(c cube.ChunkPos) bool {
	for _, bc := range b.Chunks {
		if cube.Chebyshev(bc, c) <= 1 {
			return true
		}
	}
	return false
}

func (b Batch[T]) positions() []cube.Pos {
	pos := make([]cube.Pos, len(b.Ticks))
	for i, t := range b.Ticks {
		pos[i] = t.Pos
	}
	return pos
}

// PartitionBatches splits the ticks passed into batches with disjoint
// footprints. The footprint of a tick is its chunk and the eight chunks around
// it; ticks with overlapping footprints end up in the same batch. Batches are
// ordered by the position of their first tick in the slice passed and ticks
// keep their relative order within a batch.
func PartitionBatches[T comparable](ticks []OrderedTick[T]) []Batch[T] {
	if len(ticks) == 0 {
		return nil
	}
	parent := make([]int, len(ticks))
	for i := range parent {
		parent[i] = i
	}
	var find func(i int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// The smaller index stays root so that batches order by first tick.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	owner := make(map[cube.ChunkPos]int, len(ticks)*9)
	for i, t := range ticks {
		c := t.Chunk()
		for dx := int32(-1); dx <= 1; dx++ {
			for dz := int32(-1); dz <= 1; dz++ {
				fc := cube.ChunkPos{c[0] + dx, c[1] + dz}
				if o, ok := owner[fc]; ok {
					union(o, i)
					continue
				}
				owner[fc] = i
			}
		}
	}

	index := make(map[int]int)
	var batches []Batch[T]
	for i, t := range ticks {
		root := find(i)
		bi, ok := index[root]
		if !ok {
			bi = len(batches)
			index[root] = bi
			batches = append(batches, Batch[T]{})
		}
		b := &batches[bi]
		b.Ticks = append(b.Ticks, t)
		if c := t.Chunk(); !slices.Contains(b.Chunks, c) {
			b.Chunks = append(b.Chunks, c)
		}
	}
	for i := range batches {
		slices.SortFunc(batches[i].Chunks, func(a, b cube.ChunkPos) int {
			return cmp.Compare(a.Morton(), b.Morton())
		})
	}
	return batches
}
