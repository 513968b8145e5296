package console

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/dm-vev/chunkengine/server/cmd"
)

func TestConsoleRun(t *testing.T) {
	var ran int
	cmd.Register(cmd.New("consoleping", "", "", nil, cmd.RunnableFunc(func(_ cmd.Source, _ []string, o *cmd.Output) {
		ran++
		o.Print("pong")
	})))

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	input := strings.NewReader("consoleping\n\n/consoleping\nunknowncommand\n")

	New(log).WithReader(input).Run(context.Background())

	if ran != 2 {
		t.Fatalf("expected command to run twice, got %d", ran)
	}
	out := buf.String()
	if strings.Count(out, "msg=pong") != 2 {
		t.Fatalf("expected two pong messages in log, got %q", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "unknowncommand") {
		t.Fatalf("expected unknown command error in log, got %q", out)
	}
}

func TestConsoleRunCancelled(t *testing.T) {
	var ran bool
	cmd.Register(cmd.New("consolecancel", "", "", nil, cmd.RunnableFunc(func(cmd.Source, []string, *cmd.Output) {
		ran = true
	})))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	New(slog.New(slog.DiscardHandler)).WithReader(strings.NewReader("consolecancel\n")).Run(ctx)
	if ran {
		t.Fatalf("expected no commands to run after cancellation")
	}
}
