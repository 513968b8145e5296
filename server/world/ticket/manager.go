package ticket

import (
	"container/heap"
	"slices"
	"sync"

	"github.com/brentp/intintmap"
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/google/uuid"
)

// Ticket is a claim by a holder that keeps the chunk at Pos, and the chunks
// around it, at an effective level of at most Level plus the Chebyshev
// distance to Pos.
type Ticket struct {
	Holder uuid.UUID
	Pos    cube.ChunkPos
	Level  uint8
}

// Change describes a chunk whose Class changed since the last call to
// Manager.DrainChanges.
type Change struct {
	Pos                cube.ChunkPos
	OldLevel, NewLevel uint8
	Old, New           Class
}

// Manager computes the effective level of every chunk from the tickets that
// were added to it. The effective level of a chunk is the minimum over all
// tickets of the ticket level plus the Chebyshev distance between the ticket
// and the chunk. Levels are maintained incrementally: adding a ticket only
// visits positions whose level decreases and removing one only re-derives the
// positions that depended on it.
//
// A Manager is safe for concurrent use. None of its methods block.
type Manager struct {
	conf Config

	mu      sync.Mutex
	tickets map[Ticket]struct{}
	// direct holds the levels of the tickets placed directly at a position,
	// sorted ascending. A level appears once per ticket.
	direct map[cube.ChunkPos][]uint8
	// levels maps packed chunk positions to their effective level. Positions
	// without an entry are at MaxLevel.
	levels *intintmap.Map
	// changed holds the level each position had before its first change since
	// the last drain.
	changed map[cube.ChunkPos]uint8

	queue levelQueue
}

// New creates a Manager using the thresholds in the Config passed.
func New(conf Config) *Manager {
	return &Manager{
		conf:    conf.withDefaults(),
		tickets: make(map[Ticket]struct{}),
		direct:  make(map[cube.ChunkPos][]uint8),
		levels:  intintmap.New(1024, 0.6),
		changed: make(map[cube.ChunkPos]uint8),
	}
}

// Config returns the thresholds used by the Manager.
func (m *Manager) Config() Config {
	return m.conf
}

// Add adds a ticket at the position and level passed for the holder. Adding
// a ticket that already exists, or one with a level at or above the maximum
// level, is a no-op. Add reports if the ticket was added.
func (m *Manager) Add(holder uuid.UUID, pos cube.ChunkPos, level uint8) bool {
	if level >= m.conf.MaxLevel {
		return false
	}
	t := Ticket{Holder: holder, Pos: pos, Level: level}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t]; ok {
		return false
	}
	m.tickets[t] = struct{}{}

	levels := m.direct[pos]
	i, _ := slices.BinarySearch(levels, level)
	m.direct[pos] = slices.Insert(levels, i, level)

	if level < m.level(pos) {
		m.setLevel(pos, level)
		heap.Push(&m.queue, levelEntry{pos: pos, level: level})
		m.relax()
	}
	return true
}

// Remove removes a ticket previously added with Add. Removing a ticket that
// does not exist is a no-op. Remove reports if a ticket was removed.
func (m *Manager) Remove(holder uuid.UUID, pos cube.ChunkPos, level uint8) bool {
	t := Ticket{Holder: holder, Pos: pos, Level: level}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t]; !ok {
		return false
	}
	m.removeLocked(t)
	return true
}

// RemoveHolder removes all tickets held by the holder passed and returns the
// amount of tickets removed.
func (m *Manager) RemoveHolder(holder uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var held []Ticket
	for t := range m.tickets {
		if t.Holder == holder {
			held = append(held, t)
		}
	}
	slices.SortFunc(held, compareTickets)
	for _, t := range held {
		m.removeLocked(t)
	}
	return len(held)
}

func (m *Manager) removeLocked(t Ticket) {
	delete(m.tickets, t)
	levels := m.direct[t.Pos]
	if i, ok := slices.BinarySearch(levels, t.Level); ok {
		levels = slices.Delete(levels, i, i+1)
	}
	if len(levels) == 0 {
		delete(m.direct, t.Pos)
	} else {
		m.direct[t.Pos] = levels
		if levels[0] <= t.Level {
			// Another ticket at the same position supplies the same level or
			// lower, so no level depends on the removed ticket alone.
			return
		}
	}
	if m.level(t.Pos) < t.Level {
		return
	}
	reset := m.dependants(t)
	for _, pos := range reset {
		m.setLevel(pos, m.conf.MaxLevel)
	}
	resetSet := make(map[cube.ChunkPos]struct{}, len(reset))
	for _, pos := range reset {
		resetSet[pos] = struct{}{}
	}
	for _, pos := range reset {
		best := m.conf.MaxLevel
		if levels := m.direct[pos]; len(levels) > 0 {
			best = levels[0]
		}
		forNeighbours(pos, func(n cube.ChunkPos) {
			if _, ok := resetSet[n]; ok {
				return
			}
			if l := m.level(n); l+1 < best {
				best = l + 1
			}
		})
		if best < m.conf.MaxLevel {
			m.setLevel(pos, best)
			heap.Push(&m.queue, levelEntry{pos: pos, level: best})
		}
	}
	m.relax()
}

// dependants returns all positions whose effective level equals the level
// supplied by the ticket passed. These positions form a connected area around
// the ticket position.
func (m *Manager) dependants(t Ticket) []cube.ChunkPos {
	visited := map[cube.ChunkPos]struct{}{t.Pos: {}}
	out := []cube.ChunkPos{t.Pos}
	for i := 0; i < len(out); i++ {
		forNeighbours(out[i], func(n cube.ChunkPos) {
			if _, ok := visited[n]; ok {
				return
			}
			visited[n] = struct{}{}
			want := int(t.Level) + cube.Chebyshev(t.Pos, n)
			if want >= int(m.conf.MaxLevel) || int(m.level(n)) != want {
				return
			}
			out = append(out, n)
		})
	}
	return out
}

// relax drains the queue, lowering the level of neighbours of every queued
// position until no level can be lowered further.
func (m *Manager) relax() {
	for m.queue.Len() > 0 {
		e := heap.Pop(&m.queue).(levelEntry)
		if m.level(e.pos) < e.level {
			continue
		}
		next := e.level + 1
		if next >= m.conf.MaxLevel {
			continue
		}
		forNeighbours(e.pos, func(n cube.ChunkPos) {
			if next < m.level(n) {
				m.setLevel(n, next)
				heap.Push(&m.queue, levelEntry{pos: n, level: next})
			}
		})
	}
}

// Level returns the effective level of the chunk at the position passed.
// Positions that no ticket reaches are at the maximum level.
func (m *Manager) Level(pos cube.ChunkPos) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level(pos)
}

// Class returns the Class of the chunk at the position passed.
func (m *Manager) Class(pos cube.ChunkPos) Class {
	return m.conf.Class(m.Level(pos))
}

// Tickets returns all tickets placed directly at the position passed.
func (m *Manager) Tickets(pos cube.ChunkPos) []Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tickets []Ticket
	for t := range m.tickets {
		if t.Pos == pos {
			tickets = append(tickets, t)
		}
	}
	slices.SortFunc(tickets, compareTickets)
	return tickets
}

// Len returns the amount of positions that currently have an effective level
// below the maximum level.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels.Size()
}

// DrainChanges returns every chunk whose Class changed since the previous call
// and resets the change set. Changes are ordered by their new level, so that
// the most important chunks come first, and then by their Morton order.
func (m *Manager) DrainChanges() []Change {
	m.mu.Lock()
	defer m.mu.Unlock()

	changes := make([]Change, 0, len(m.changed))
	for pos, old := range m.changed {
		level := m.level(pos)
		oldClass, newClass := m.conf.Class(old), m.conf.Class(level)
		if oldClass == newClass {
			continue
		}
		changes = append(changes, Change{Pos: pos, OldLevel: old, NewLevel: level, Old: oldClass, New: newClass})
	}
	clear(m.changed)
	slices.SortFunc(changes, func(a, b Change) int {
		if a.NewLevel != b.NewLevel {
			return int(a.NewLevel) - int(b.NewLevel)
		}
		ma, mb := a.Pos.Morton(), b.Pos.Morton()
		switch {
		case ma < mb:
			return -1
		case ma > mb:
			return 1
		}
		return 0
	})
	return changes
}

func (m *Manager) level(pos cube.ChunkPos) uint8 {
	if v, ok := m.levels.Get(int64(pos.Pack())); ok {
		return uint8(v)
	}
	return m.conf.MaxLevel
}

func (m *Manager) setLevel(pos cube.ChunkPos, level uint8) {
	old := m.level(pos)
	if old == level {
		return
	}
	if _, ok := m.changed[pos]; !ok {
		m.changed[pos] = old
	}
	if level >= m.conf.MaxLevel {
		m.levels.Del(int64(pos.Pack()))
		return
	}
	m.levels.Put(int64(pos.Pack()), int64(level))
}

func forNeighbours(pos cube.ChunkPos, f func(n cube.ChunkPos)) {
	for x := int32(-1); x <= 1; x++ {
		for z := int32(-1); z <= 1; z++ {
			if x == 0 && z == 0 {
				continue
			}
			f(cube.ChunkPos{pos[0] + x, pos[1] + z})
		}
	}
}

func compareTickets(a, b Ticket) int {
	if c := slices.Compare(a.Holder[:], b.Holder[:]); c != 0 {
		return c
	}
	if a.Pos != b.Pos {
		if a.Pos[0] != b.Pos[0] {
			return int(a.Pos[0]) - int(b.Pos[0])
		}
		return int(a.Pos[1]) - int(b.Pos[1])
	}
	return int(a.Level) - int(b.Level)
}
