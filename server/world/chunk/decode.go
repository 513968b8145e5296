package chunk

import (
	"fmt"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// Decode decodes a chunk record previously produced by Encode. pos is the
// position the record was stored at, air the runtime ID of air and r the
// range of the world. Errors caused by the contents of the record wrap
// ErrMalformed.
func Decode(data []byte, pos cube.ChunkPos, air uint32, r cube.Range) (*Column, error) {
	var rec chunkRecord
	if err := nbt.UnmarshalEncoding(data, &rec, nbt.BigEndian); err != nil {
		return nil, fmt.Errorf("%w: decode nbt: %v", ErrMalformed, err)
	}
	if rec.XPos != pos[0] || rec.ZPos != pos[1] {
		return nil, fmt.Errorf("%w: record for chunk (%v, %v) stored at %v", ErrMalformed, rec.XPos, rec.ZPos, pos)
	}
	c := New(air, r)
	for _, sr := range rec.Sections {
		y := int8(sr.Y)
		index := int(y) - r[0]>>4
		if index < 0 || index >= len(c.sections) {
			// Sections outside the range of the world only carry light.
			continue
		}
		s := c.sections[index]
		if len(sr.BlockStates.Palette) > 0 {
			palette := make([]uint32, len(sr.BlockStates.Palette))
			for i, e := range sr.BlockStates.Palette {
				palette[i] = stateRuntimeID(e, air)
			}
			words := make([]uint64, len(sr.BlockStates.Data))
			for i, w := range sr.BlockStates.Data {
				words[i] = uint64(w)
			}
			storage, err := newPalettedStorageFrom(palette, words)
			if err != nil {
				return nil, fmt.Errorf("section %v: %w", y, err)
			}
			s.blocks = storage
		}
		if err := readLight(&s.blockLight, sr.BlockLight); err != nil {
			return nil, fmt.Errorf("section %v block light: %w", y, err)
		}
		if err := readLight(&s.skyLight, sr.SkyLight); err != nil {
			return nil, fmt.Errorf("section %v sky light: %w", y, err)
		}
	}
	col := &Column{Chunk: c, Status: rec.Status, LastUpdate: rec.LastUpdate}
	for _, data := range rec.BlockEntities {
		x, okX := data["x"].(int32)
		y, okY := data["y"].(int32)
		z, okZ := data["z"].(int32)
		if !okX || !okY || !okZ {
			return nil, fmt.Errorf("%w: block entity without position", ErrMalformed)
		}
		be := BlockEntity{Pos: cube.Pos{int(x), int(y), int(z)}, Data: data}
		delete(be.Data, "x")
		delete(be.Data, "y")
		delete(be.Data, "z")
		col.BlockEntities = append(col.BlockEntities, be)
	}
	col.BlockTicks = decodeTicks(rec.BlockTicks, air)
	col.FluidTicks = decodeTicks(rec.FluidTicks, air)
	return col, nil
}

func decodeTicks(records []tickRecord, air uint32) []ScheduledTick {
	if len(records) == 0 {
		return nil
	}
	ticks := make([]ScheduledTick, 0, len(records))
	for _, r := range records {
		rid := stateRuntimeID(paletteEntry{Name: r.Target}, air)
		if rid == air {
			continue
		}
		ticks = append(ticks, ScheduledTick{
			Pos:      cube.Pos{int(r.X), int(r.Y), int(r.Z)},
			Block:    rid,
			Delay:    int64(r.Delay),
			Priority: r.Priority,
		})
	}
	return ticks
}

func readLight(a *LightArray, b []byte) error {
	switch len(b) {
	case 0:
		return nil
	case len(a):
		copy(a[:], b)
		return nil
	}
	return fmt.Errorf("%w: light array of %d bytes", ErrMalformed, len(b))
}
