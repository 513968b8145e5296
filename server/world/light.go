package world

import (
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// lightStorage gives the light engine access to the columns of a Level.
// Every chunk handed out holds a borrow, so that a column being unloaded is
// kept in memory when its light changes.
type lightStorage struct {
	l *Level
}

func (s lightStorage) Chunk(pos ChunkPos) (*chunk.Chunk, func(written bool), bool) {
	c, ok := s.l.resident(pos)
	if !ok {
		return nil, nil, false
	}
	if st := c.State(); st < StateLoaded || st == StateEvicted {
		c.release()
		return nil, nil, false
	}
	c.mu.Lock()
	return c.data.Chunk, func(written bool) {
		if written {
			c.modified.Store(true)
		}
		c.mu.Unlock()
		c.release()
	}, true
}

func (s lightStorage) Absent(pos ChunkPos) bool {
	return s.l.absent(pos)
}

// lightBlocks provides the light properties of registered block states.
type lightBlocks struct{}

func (lightBlocks) Opacity(rid uint32) uint8  { return propertiesOf(rid).opacity }
func (lightBlocks) Emission(rid uint32) uint8 { return propertiesOf(rid).emission }

// BlockLight returns the block light level at the position passed, or 0 if
// its column is not loaded.
func (l *Level) BlockLight(pos cube.Pos) uint8 {
	return l.readLight(pos, false)
}

// SkyLight returns the sky light level at the position passed, or 0 if its
// column is not loaded.
func (l *Level) SkyLight(pos cube.Pos) uint8 {
	return l.readLight(pos, true)
}

func (l *Level) readLight(pos cube.Pos, sky bool) uint8 {
	c, ok := l.resident(pos.ChunkPos())
	if !ok {
		return 0
	}
	defer c.release()
	if st := c.State(); st < StateLoaded || st == StateEvicted {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	x, y, z := pos.Local()
	if sky {
		return c.data.Chunk.SkyLight(x, y, z)
	}
	return c.data.Chunk.BlockLight(x, y, z)
}
