package anvil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/Tnze/go-mc/save/region"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// Provider implements world.Provider by storing columns in region files, 32x32
// columns per file. Region files are kept open in a bounded cache.
type Provider struct {
	conf Config
	dir  string

	mu      sync.Mutex
	regions map[regionPos]*regionFile
	// recent holds the open regions, least recently used first.
	recent []regionPos
	closed bool
}

type regionPos [2]int32

// regionFile is an open region file. Its region is nil once it was closed.
type regionFile struct {
	mu sync.Mutex
	r  *region.Region
}

func (p *Provider) path(pos regionPos) string {
	return filepath.Join(p.dir, fmt.Sprintf("r.%d.%d.mca", pos[0], pos[1]))
}

// LoadColumn reads the column at the position passed. world.ErrNotFound is
// returned if it was never stored.
func (p *Provider) LoadColumn(pos world.ChunkPos) (*chunk.Column, error) {
	var payload []byte
	err := p.withRegion(pos, false, func(r *region.Region) error {
		x, z := pos.InRegion()
		if !r.ExistSector(x, z) {
			return world.ErrNotFound
		}
		var err error
		if payload, err = r.ReadSector(x, z); err != nil {
			return fmt.Errorf("%w: read sector: %w", world.ErrCorrupt, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: column %v: %w", world.ErrCorrupt, pos, err)
	}
	col, err := chunk.Decode(data, pos, world.AirRuntimeID(), p.conf.Range)
	if err != nil {
		return nil, fmt.Errorf("%w: column %v: %w", world.ErrCorrupt, pos, err)
	}
	return col, nil
}

// StoreColumn writes the column passed to the region file it belongs in.
func (p *Provider) StoreColumn(pos world.ChunkPos, col *chunk.Column) error {
	data, err := chunk.Encode(col, pos)
	if err != nil {
		return fmt.Errorf("encode column %v: %w", pos, err)
	}
	payload, err := p.conf.Compression.compress(data)
	if err != nil {
		return fmt.Errorf("compress column %v: %w", pos, err)
	}
	return p.withRegion(pos, true, func(r *region.Region) error {
		x, z := pos.InRegion()
		if err := r.WriteSector(x, z, payload); err != nil {
			return fmt.Errorf("write sector: %w", err)
		}
		return nil
	})
}

// withRegion calls f with the region file holding the column at the position
// passed. If the file does not exist, it is created if create is true and
// world.ErrNotFound is returned otherwise.
func (p *Provider) withRegion(pos world.ChunkPos, create bool, f func(r *region.Region) error) error {
	rx, rz := pos.Region()
	key := regionPos{rx, rz}
	for {
		rf, err := p.region(key, create)
		if err != nil {
			return err
		}
		rf.mu.Lock()
		if rf.r == nil {
			// Evicted from the cache after it was looked up.
			rf.mu.Unlock()
			continue
		}
		err = f(rf.r)
		rf.mu.Unlock()
		return err
	}
}

// region returns the open region file at the position passed, opening it if
// needed. The least recently used region is closed if too many are open.
func (p *Provider) region(key regionPos, create bool) (*regionFile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("anvil: provider closed")
	}
	if rf, ok := p.regions[key]; ok {
		p.touch(key)
		return rf, nil
	}

	path := p.path(key)
	r, err := region.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !create {
			return nil, world.ErrNotFound
		}
		r, err = region.Create(path)
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		// The header of the region is truncated, so none of its columns can
		// be located anymore.
		if !create {
			return nil, fmt.Errorf("%w: open region %v: %w", world.ErrCorrupt, filepath.Base(path), err)
		}
		r, err = p.replaceRegion(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open region %v: %w", filepath.Base(path), err)
	}
	rf := &regionFile{r: r}
	p.regions[key] = rf
	p.recent = append(p.recent, key)

	for len(p.recent) > p.conf.MaxOpenRegions {
		oldest := p.recent[0]
		p.recent = p.recent[1:]
		p.closeRegion(p.regions[oldest])
		delete(p.regions, oldest)
	}
	return rf, nil
}

// replaceRegion moves the unreadable region file at the path passed aside and
// creates an empty region in its place.
func (p *Provider) replaceRegion(path string) (*region.Region, error) {
	if err := os.Rename(path, path+".corrupt"); err != nil {
		return nil, fmt.Errorf("move corrupt region aside: %w", err)
	}
	p.conf.Log.Warn("replaced corrupt region file", "file", filepath.Base(path), "moved-to", filepath.Base(path)+".corrupt")
	return region.Create(path)
}

// touch moves the region passed to the back of the recently used list.
func (p *Provider) touch(key regionPos) {
	if i := slices.Index(p.recent, key); i >= 0 {
		p.recent = append(slices.Delete(p.recent, i, i+1), key)
	}
}

func (p *Provider) closeRegion(rf *regionFile) {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.r == nil {
		return
	}
	if err := rf.r.Close(); err != nil {
		p.conf.Log.Error("close region: " + err.Error())
	}
	rf.r = nil
}

// Regions returns the paths of all region files in the directory of the
// Provider.
func (p *Provider) Regions() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		var x, z int32
		if filepath.Ext(e.Name()) != ".mca" || e.IsDir() {
			continue
		}
		if _, err := fmt.Sscanf(e.Name(), "r.%d.%d.mca", &x, &z); err == nil {
			paths = append(paths, filepath.Join(p.dir, e.Name()))
		}
	}
	return paths, nil
}

// Close closes every open region file.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for key, rf := range p.regions {
		p.closeRegion(rf)
		delete(p.regions, key)
	}
	p.recent = nil
	return nil
}
