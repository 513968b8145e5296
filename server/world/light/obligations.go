package light

import (
	"slices"
	"sync"

	"github.com/dm-vev/chunkengine/server/block/cube"
)

// obligation is a light update into a chunk that was not loaded when it was
// made. from is the loaded neighbour the update came from.
type obligation struct {
	pos, from cube.Pos
	level     uint8
	sky       bool
	decrease  bool
}

type obligationKey struct {
	pos      cube.Pos
	sky      bool
	decrease bool
}

func (o obligation) key() obligationKey {
	return obligationKey{pos: o.pos, sky: o.sky, decrease: o.decrease}
}

// obligations holds deferred updates per chunk. Updates for the same position
// are coalesced, keeping the one with the highest level.
type obligations struct {
	mu     sync.Mutex
	chunks map[cube.ChunkPos]map[obligationKey]obligation
	n      int
}

func newObligations() *obligations {
	return &obligations{chunks: make(map[cube.ChunkPos]map[obligationKey]obligation)}
}

// Add records an obligation, coalescing it with one already recorded for the
// same position.
func (o *obligations) Add(ob obligation) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c := ob.pos.ChunkPos()
	m, ok := o.chunks[c]
	if !ok {
		m = make(map[obligationKey]obligation)
		o.chunks[c] = m
	}
	k := ob.key()
	if existing, ok := m[k]; ok {
		if existing.level >= ob.level {
			return
		}
	} else {
		o.n++
	}
	m[k] = ob
}

// Drain removes and returns the obligations of a chunk, decreases first and
// otherwise in a deterministic order.
func (o *obligations) Drain(c cube.ChunkPos) []obligation {
	o.mu.Lock()
	m, ok := o.chunks[c]
	if !ok {
		o.mu.Unlock()
		return nil
	}
	delete(o.chunks, c)
	o.n -= len(m)
	o.mu.Unlock()

	list := make([]obligation, 0, len(m))
	for _, ob := range m {
		list = append(list, ob)
	}
	slices.SortFunc(list, func(a, b obligation) int {
		if a.decrease != b.decrease {
			if a.decrease {
				return -1
			}
			return 1
		}
		if a.sky != b.sky {
			if a.sky {
				return 1
			}
			return -1
		}
		return comparePos(a.pos, b.pos)
	})
	return list
}

// Prune drops the obligations of all chunks for which absent returns true and
// returns the amount dropped.
func (o *obligations) Prune(absent func(cube.ChunkPos) bool) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	dropped := 0
	for c, m := range o.chunks {
		if absent(c) {
			dropped += len(m)
			delete(o.chunks, c)
		}
	}
	o.n -= dropped
	return dropped
}

// Len returns the amount of obligations held.
func (o *obligations) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.n
}
