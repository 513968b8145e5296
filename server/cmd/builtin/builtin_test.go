package builtin

import (
	"strings"
	"testing"

	"github.com/dm-vev/chunkengine/server"
	"github.com/dm-vev/chunkengine/server/block/cube"
	"github.com/dm-vev/chunkengine/server/cmd"
	"github.com/dm-vev/chunkengine/server/world"
)

type recordingSource struct {
	messages []string
	errors   []string
}

func (r *recordingSource) SendCommandOutput(o *cmd.Output) {
	r.messages = append(r.messages, o.Messages()...)
	for _, err := range o.Errors() {
		r.errors = append(r.errors, err.Error())
	}
}

func (r *recordingSource) contains(s string) bool {
	for _, msg := range r.messages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	srv, err := server.Config{
		World: world.Config{
			Range:           cube.Range{0, 63},
			DisableTicking:  true,
			SpawnRadius:     -1,
			RandomTickSpeed: -1,
		},
	}.New()
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	Register(srv)
	return srv
}

func TestForceloadCommand(t *testing.T) {
	srv := newTestServer(t)
	src := &recordingSource{}

	cmd.ExecuteLine(src, "/forceload add 5 -3")
	if !srv.ForcedChunks().Contains(world.ChunkPos{5, -3}) {
		t.Fatalf("expected chunk to be forced, got %v %v", src.messages, src.errors)
	}
	cmd.ExecuteLine(src, "forceload list")
	if !src.contains("5, -3") {
		t.Fatalf("expected forced chunk in list, got %v", src.messages)
	}
	cmd.ExecuteLine(src, "forceload remove 5 -3")
	if srv.ForcedChunks().Len() != 0 {
		t.Fatalf("expected forced chunk to be removed")
	}

	cmd.ExecuteLine(src, "forceload add five 3")
	cmd.ExecuteLine(src, "forceload teleport")
	if len(src.errors) != 2 {
		t.Fatalf("expected 2 errors for invalid usage, got %v", src.errors)
	}
}

func TestTicketsCommand(t *testing.T) {
	srv := newTestServer(t)
	src := &recordingSource{}

	cmd.ExecuteLine(src, "tickets 0 0")
	if !src.contains("No tickets") || !src.contains("unloaded") {
		t.Fatalf("expected an empty unloaded chunk, got %v", src.messages)
	}

	if _, err := srv.ForcedChunks().Add(world.ChunkPos{}); err != nil {
		t.Fatalf("add forced chunk: %v", err)
	}
	src = &recordingSource{}
	cmd.ExecuteLine(src, "tickets 0 0")
	if !src.contains("ticking") || !src.contains("forceload") {
		t.Fatalf("expected a ticking chunk with a forceload ticket, got %v", src.messages)
	}

	src = &recordingSource{}
	cmd.ExecuteLine(src, "tickets 0")
	if len(src.errors) != 1 {
		t.Fatalf("expected usage error, got %v", src.errors)
	}
}

func TestHelpCommand(t *testing.T) {
	newTestServer(t)
	src := &recordingSource{}

	cmd.ExecuteLine(src, "help")
	for _, name := range []string{"/status", "/save", "/forceload", "/tickets", "/gc", "/stop"} {
		if !src.contains(name) {
			t.Fatalf("expected %v in help output, got %v", name, src.messages)
		}
	}

	src = &recordingSource{}
	cmd.ExecuteLine(src, "help /tickets")
	if !src.contains("Usage: /tickets <x> <z>") {
		t.Fatalf("expected usage of tickets, got %v", src.messages)
	}
}

func TestStatusAndSaveCommands(t *testing.T) {
	newTestServer(t)
	src := &recordingSource{}
	cmd.ExecuteLine(src, "status")
	cmd.ExecuteLine(src, "save")
	cmd.ExecuteLine(src, "gc")
	if len(src.errors) != 0 {
		t.Fatalf("expected no errors, got %v", src.errors)
	}
	if !src.contains("Columns:") || !src.contains("Saved 0 columns") || !src.contains("Columns unloading: 0") {
		t.Fatalf("unexpected output %v", src.messages)
	}
}

func TestStopCommand(t *testing.T) {
	srv := newTestServer(t)
	cmd.ExecuteLine(&recordingSource{}, "stop")
	select {
	case <-srv.Closed():
	default:
		t.Fatalf("expected server to be closed")
	}
}

func TestViewerCommand(t *testing.T) {
	srv := newTestServer(t)
	src := &recordingSource{}

	cmd.ExecuteLine(src, "viewer add alice 40 -8 2")
	if srv.ViewerCount() != 1 || !src.contains("chunk 2, -1 with radius 2") {
		t.Fatalf("expected viewer to be added, got %v %v", src.messages, src.errors)
	}
	cmd.ExecuteLine(src, "viewer move Alice 0 0")
	if c := srv.Level().Tickets().Class(world.ChunkPos{}); c.String() != "ticking" {
		t.Fatalf("expected viewer chunk to be ticking, got %v", c)
	}
	cmd.ExecuteLine(src, "viewer remove alice")
	if srv.ViewerCount() != 0 {
		t.Fatalf("expected viewer to be removed")
	}
	cmd.ExecuteLine(src, "viewer remove alice")
	cmd.ExecuteLine(src, "viewer move bob 1 1")
	if len(src.errors) != 2 {
		t.Fatalf("expected errors for unknown viewers, got %v", src.errors)
	}
}
