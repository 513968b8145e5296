package chunk

import (
	"fmt"
	"maps"

	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// DataVersion is the data version stored in every chunk record.
const DataVersion = 3955

type chunkRecord struct {
	DataVersion   int32            `nbt:"DataVersion"`
	XPos          int32            `nbt:"xPos"`
	YPos          int32            `nbt:"yPos"`
	ZPos          int32            `nbt:"zPos"`
	Status        string           `nbt:"Status"`
	LastUpdate    int64            `nbt:"LastUpdate"`
	Sections      []sectionRecord  `nbt:"sections"`
	BlockEntities []map[string]any `nbt:"block_entities,omitempty"`
	BlockTicks    []tickRecord     `nbt:"block_ticks,omitempty"`
	FluidTicks    []tickRecord     `nbt:"fluid_ticks,omitempty"`
}

type sectionRecord struct {
	Y           uint8         `nbt:"Y"`
	BlockStates paletteRecord `nbt:"block_states"`
	BlockLight  []byte        `nbt:"BlockLight,omitempty"`
	SkyLight    []byte        `nbt:"SkyLight,omitempty"`
}

type paletteRecord struct {
	Palette []paletteEntry `nbt:"palette"`
	Data    []int64        `nbt:"data,omitempty"`
}

type paletteEntry struct {
	Name       string         `nbt:"Name"`
	Properties map[string]any `nbt:"Properties,omitempty"`
	Version    int32          `nbt:"version,omitempty"`
}

type tickRecord struct {
	X        int32  `nbt:"x"`
	Y        int32  `nbt:"y"`
	Z        int32  `nbt:"z"`
	Delay    int32  `nbt:"t"`
	Priority int32  `nbt:"p"`
	Target   string `nbt:"i"`
}

// Encode encodes the Column at the position passed into a big-endian NBT
// compound. The chunk is compacted before it is encoded.
func Encode(col *Column, pos cube.ChunkPos) ([]byte, error) {
	c := col.Chunk
	c.Compact()

	status := col.Status
	if status == "" {
		status = StatusFull
	}
	rec := chunkRecord{
		DataVersion: DataVersion,
		XPos:        pos[0],
		YPos:        int32(c.r[0] >> 4),
		ZPos:        pos[1],
		Status:      status,
		LastUpdate:  col.LastUpdate,
		Sections:    make([]sectionRecord, len(c.sections)),
	}
	for i, s := range c.sections {
		sr := sectionRecord{Y: uint8(c.SectionY(i))}
		palette := s.blocks.Palette()
		sr.BlockStates.Palette = make([]paletteEntry, len(palette))
		for j, rid := range palette {
			entry, err := encodeState(rid)
			if err != nil {
				return nil, err
			}
			sr.BlockStates.Palette[j] = entry
		}
		if words := s.blocks.Words(); len(words) > 0 {
			sr.BlockStates.Data = make([]int64, len(words))
			for j, w := range words {
				sr.BlockStates.Data[j] = int64(w)
			}
		}
		sr.BlockLight = lightBytes(&s.blockLight)
		sr.SkyLight = lightBytes(&s.skyLight)
		rec.Sections[i] = sr
	}
	for _, be := range col.BlockEntities {
		data := maps.Clone(be.Data)
		if data == nil {
			data = map[string]any{}
		}
		data["x"], data["y"], data["z"] = int32(be.Pos[0]), int32(be.Pos[1]), int32(be.Pos[2])
		rec.BlockEntities = append(rec.BlockEntities, data)
	}
	var err error
	if rec.BlockTicks, err = encodeTicks(col.BlockTicks); err != nil {
		return nil, err
	}
	if rec.FluidTicks, err = encodeTicks(col.FluidTicks); err != nil {
		return nil, err
	}
	data, err := nbt.MarshalEncoding(rec, nbt.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("encode chunk %v: %w", pos, err)
	}
	return data, nil
}

func encodeState(rid uint32) (paletteEntry, error) {
	if RuntimeIDToState == nil {
		return paletteEntry{}, fmt.Errorf("encode block state: no state registry installed")
	}
	name, props, ok := RuntimeIDToState(rid)
	if !ok {
		return paletteEntry{}, fmt.Errorf("encode block state: unknown runtime ID %v", rid)
	}
	entry := paletteEntry{Name: name, Version: CurrentBlockVersion}
	if len(props) > 0 {
		entry.Properties = props
	}
	return entry, nil
}

func encodeTicks(ticks []ScheduledTick) ([]tickRecord, error) {
	if len(ticks) == 0 {
		return nil, nil
	}
	records := make([]tickRecord, len(ticks))
	for i, t := range ticks {
		entry, err := encodeState(t.Block)
		if err != nil {
			return nil, err
		}
		records[i] = tickRecord{
			X: int32(t.Pos[0]), Y: int32(t.Pos[1]), Z: int32(t.Pos[2]),
			Delay:    int32(t.Delay),
			Priority: t.Priority,
			Target:   entry.Name,
		}
	}
	return records, nil
}

// lightBytes returns the bytes of a light array, or nil if the array holds no
// light at all.
func lightBytes(a *LightArray) []byte {
	for _, b := range a {
		if b != 0 {
			return append([]byte(nil), a[:]...)
		}
	}
	return nil
}
