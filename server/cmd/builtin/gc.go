package builtin

import (
	"runtime"

	"github.com/dm-vev/chunkengine/server/cmd"
)

type gcCommand struct {
	srv serverAdapter
}

func newGCCommand(srv serverAdapter) cmd.Command {
	return cmd.New("gc", "Unloads unused columns and triggers a Go garbage collection cycle.", "", nil, gcCommand{srv: srv})
}

func (g gcCommand) Run(_ cmd.Source, _ []string, o *cmd.Output) {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	chunksBefore := g.srv.Status().LoadedColumns
	chunksCollected := g.srv.CollectGarbage()

	runtime.GC()

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	freedBytes := uint64(0)
	if before.HeapAlloc > after.HeapAlloc {
		freedBytes = before.HeapAlloc - after.HeapAlloc
	}

	o.Print("---- Garbage collection result ----")
	o.Printf("Columns unloading: %d (%d loaded before)", chunksCollected, chunksBefore)
	o.Printf("Heap memory freed: %.2f MiB (current heap %.2f MiB)", bytesToMiB(freedBytes), bytesToMiB(after.HeapAlloc))
}
