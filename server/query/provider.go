package query

import (
	"runtime/debug"
)

// ProviderFunc produces Data for the query responder. The host and port values
// represent the address that the query listener is bound to and should be
// reflected in the returned Data structure.
type ProviderFunc func(host string, port int) Data

// engineLabel constructs the engine identifier that is shown by query clients.
var engineLabel = buildEngineLabel()

// buildEngineLabel inspects build metadata to determine the engine label that
// is reported through the query interface. The build information is optional,
// so sane defaults are supplied when it cannot be determined.
func buildEngineLabel() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return "Chunk Engine"
	}
	version := info.Main.Version
	if version == "" {
		version = "dev"
	}
	return "Chunk Engine (" + version + ")"
}
