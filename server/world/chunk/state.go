package chunk

import (
	"github.com/df-mc/worldupgrader/blockupgrader"
)

// CurrentBlockVersion is the version written with every palette entry.
// Entries written with an older version are upgraded before they are
// resolved.
const CurrentBlockVersion int32 = 18168865

var (
	// RuntimeIDToState must hold a function that resolves a runtime ID to the
	// name and properties of its block state. It is set by the block registry.
	RuntimeIDToState func(runtimeID uint32) (name string, properties map[string]any, found bool)
	// StateToRuntimeID must hold a function that resolves a block state to its
	// runtime ID. It is set by the block registry.
	StateToRuntimeID func(name string, properties map[string]any) (runtimeID uint32, found bool)
)

// stateRuntimeID resolves a stored palette entry, upgrading it first if it was
// written by an older version. Unknown states resolve to air.
func stateRuntimeID(e paletteEntry, air uint32) uint32 {
	name, props := e.Name, e.Properties
	if e.Version != 0 && e.Version < CurrentBlockVersion {
		upgraded := blockupgrader.Upgrade(blockupgrader.BlockState{
			Name:       name,
			Properties: props,
			Version:    e.Version,
		})
		name, props = upgraded.Name, upgraded.Properties
	}
	if props == nil {
		props = map[string]any{}
	}
	if StateToRuntimeID == nil {
		return air
	}
	if rid, ok := StateToRuntimeID(name, props); ok {
		return rid
	}
	return air
}
