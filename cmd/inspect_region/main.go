// Command inspect_region lists the columns stored in the region files of a
// world together with the blocks in their palettes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/Tnze/go-mc/save/region"
	_ "github.com/dm-vev/chunkengine/server/block"
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/dm-vev/chunkengine/server/world/anvil"
	"github.com/dm-vev/chunkengine/server/world/chunk"
)

func main() {
	minY := flag.Int("min-y", -64, "lowest y coordinate of the world")
	maxY := flag.Int("max-y", 319, "highest y coordinate of the world")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect_region [-min-y n] [-max-y n] <world directory>")
		os.Exit(2)
	}
	if err := inspect(os.Stdout, flag.Arg(0), cube.Range{*minY, *maxY}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspect(w io.Writer, dir string, r cube.Range) error {
	p, err := anvil.Config{Range: r}.Open(dir)
	if err != nil {
		return err
	}
	defer p.Close()

	paths, err := p.Regions()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errNoRegions
	}
	for _, path := range paths {
		var rx, rz int32
		if _, err := fmt.Sscanf(filepath.Base(path), "r.%d.%d.mca", &rx, &rz); err != nil {
			continue
		}
		positions, err := storedColumns(path, rx, rz)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", filepath.Base(path), err)
			continue
		}
		fmt.Fprintf(w, "%s: %d columns\n", filepath.Base(path), len(positions))
		for _, pos := range positions {
			col, err := p.LoadColumn(pos)
			if err != nil {
				fmt.Fprintf(w, "  %d, %d: %v\n", pos[0], pos[1], err)
				continue
			}
			printColumn(w, pos, col)
		}
	}
	return nil
}

// storedColumns returns the positions of all columns present in the region
// file at the path passed.
func storedColumns(path string, rx, rz int32) ([]world.ChunkPos, error) {
	f, err := region.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var positions []world.ChunkPos
	for z := range 32 {
		for x := range 32 {
			if f.ExistSector(x, z) {
				positions = append(positions, world.ChunkPos{rx<<5 + int32(x), rz<<5 + int32(z)})
			}
		}
	}
	return positions, nil
}

func printColumn(w io.Writer, pos world.ChunkPos, col *chunk.Column) {
	counts := map[string]int{}
	for _, sec := range col.Chunk.Sections() {
		blocks := sec.Blocks()
		for _, rid := range blocks.Palette() {
			b, ok := world.BlockByRuntimeID(rid)
			if !ok {
				counts[fmt.Sprintf("unknown(%d)", rid)]++
				continue
			}
			name, _ := b.EncodeBlock()
			counts[name]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintf(w, "  %d, %d: status=%v block_entities=%d block_ticks=%d fluid_ticks=%d\n",
		pos[0], pos[1], col.Status, len(col.BlockEntities), len(col.BlockTicks), len(col.FluidTicks))
	for _, name := range names {
		fmt.Fprintf(w, "    %s (%d sections)\n", name, counts[name])
	}
}

var errNoRegions = errors.New("no region files found")
