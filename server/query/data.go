package query

import (
	"strconv"

	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// Data summarises the information returned by the query responder. The
// server package supplies values without being aware of the exact key/value
// pairs that are sent over the wire.
type Data struct {
	// HostName is the public server name.
	HostName string
	// WorldName holds the name of the world served.
	WorldName string
	// Engine identifies the software that powers the server. When empty the
	// package falls back to the compiled engineLabel.
	Engine string
	// Version represents the protocol version string advertised to clients.
	Version string
	// HostIP is the textual representation of the listening IP address.
	HostIP string
	// HostPort is the listening port number.
	HostPort int
	// LoadedColumns is the amount of columns resident in memory.
	LoadedColumns int
	// Viewers is the amount of viewers keeping columns loaded.
	Viewers int
	// ForcedChunks is the amount of chunks forced to stay loaded.
	ForcedChunks int
	// TPS is the average amount of ticks per second, formatted.
	TPS string
	// Tick is the current tick of the world.
	Tick uint64
	// GameType describes the type of game. Defaults to "SMP" when empty.
	GameType string
	// GameID is the identifier of the title shown to clients. Defaults to
	// "MINECRAFT" when empty.
	GameID string
}

type keyValue struct {
	key   string
	value string
}

// collectData retrieves the latest state from the provider passed. If the
// provider is nil, sane defaults are emitted.
func collectData(provider ProviderFunc, host string, port int) Data {
	if provider == nil {
		return defaultData(host, port)
	}
	data := provider(canonicalHost(host), port)
	data.applyDefaults()
	return data
}

// canonicalHost returns the textual representation of the listening host or a
// safe default when it cannot be determined.
func canonicalHost(host string) string {
	if host == "" {
		return "0.0.0.0"
	}
	return host
}

// applyDefaults ensures that required fields are initialised before the data is
// serialised into key/value pairs.
func (d *Data) applyDefaults() {
	if d.HostIP == "" {
		d.HostIP = "0.0.0.0"
	}
	if d.Engine == "" {
		d.Engine = engineLabel
	}
	if d.Version == "" {
		d.Version = protocol.CurrentVersion
	}
	if d.GameType == "" {
		d.GameType = "SMP"
	}
	if d.GameID == "" {
		d.GameID = "MINECRAFT"
	}
	if d.TPS == "" {
		d.TPS = "0.00"
	}
	d.HostPort = int(uint16(d.HostPort))
}

// keyValues converts Data into the ordered key/value pairs required by the
// query protocol.
func (d Data) keyValues() []keyValue {
	values := []keyValue{
		{"hostname", d.HostName},
		{"gametype", d.GameType},
		{"game_id", d.GameID},
		{"version", d.Version},
		{"server_engine", d.Engine},
	}
	if d.WorldName != "" {
		values = append(values, keyValue{"map", d.WorldName})
	}
	return append(values,
		keyValue{"numplayers", strconv.Itoa(d.Viewers)},
		keyValue{"maxplayers", "0"},
		keyValue{"hostport", strconv.Itoa(d.HostPort)},
		keyValue{"hostip", d.HostIP},
		keyValue{"loaded_columns", strconv.Itoa(d.LoadedColumns)},
		keyValue{"forced_chunks", strconv.Itoa(d.ForcedChunks)},
		keyValue{"tps", d.TPS},
		keyValue{"tick", strconv.FormatUint(d.Tick, 10)},
	)
}

// defaultData returns the fallback query response when no provider is
// available.
func defaultData(host string, port int) Data {
	data := Data{
		HostName: "Chunk Engine Server",
		HostIP:   canonicalHost(host),
		HostPort: port,
	}
	data.applyDefaults()
	return data
}
