package builtin

import (
	"github.com/dm-vev/chunkengine/server"
	"github.com/dm-vev/chunkengine/server/cmd"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/google/uuid"
)

type ticketsCommand struct {
	srv serverAdapter
}

func newTicketsCommand(srv serverAdapter) cmd.Command {
	return cmd.New("tickets", "Shows the ticket level and state of a chunk.", "<x> <z>", nil, ticketsCommand{srv: srv})
}

func (c ticketsCommand) Run(_ cmd.Source, args []string, o *cmd.Output) {
	if len(args) != 2 {
		o.Errorf("Usage: /tickets <x> <z>")
		return
	}
	pos, err := parseChunkPos(args[0], args[1])
	if err != nil {
		o.Error(err)
		return
	}
	l := c.srv.Level()
	tickets := l.Tickets()
	o.Printf("Chunk %d, %d: level %d (%v), column %v", pos[0], pos[1], tickets.Level(pos), tickets.Class(pos), l.State(pos))
	held := tickets.Tickets(pos)
	if len(held) == 0 {
		o.Print("No tickets at this chunk.")
		return
	}
	for _, t := range held {
		o.Printf("- %v at level %d (%s)", t.Holder, t.Level, holderName(t.Holder))
	}
}

// holderName returns a readable name for well known ticket holders.
func holderName(id uuid.UUID) string {
	switch id {
	case world.SpawnHolder:
		return "spawn"
	case server.ForceloadHolder:
		return "forceload"
	}
	return "viewer"
}
