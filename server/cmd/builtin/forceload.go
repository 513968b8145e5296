package builtin

import (
	"strings"

	"github.com/dm-vev/chunkengine/server/cmd"
)

type forceloadCommand struct {
	srv serverAdapter
}

func newForceloadCommand(srv serverAdapter) cmd.Command {
	return cmd.New(
		"forceload",
		"Manages chunks that are always kept loaded and ticking.",
		"<add|remove|list> [x] [z]",
		nil,
		forceloadCommand{srv: srv},
	)
}

func (c forceloadCommand) Run(_ cmd.Source, args []string, o *cmd.Output) {
	if len(args) == 0 {
		o.Errorf("Usage: /forceload <add|remove|list> [x] [z]")
		return
	}
	forced := c.srv.ForcedChunks()
	switch strings.ToLower(args[0]) {
	case "list":
		chunks := forced.Chunks()
		if len(chunks) == 0 {
			o.Print("No chunks are forced.")
			return
		}
		o.Printf("Forced chunks (%d):", len(chunks))
		for _, pos := range chunks {
			o.Printf("%d, %d", pos[0], pos[1])
		}
	case "add", "remove":
		if len(args) != 3 {
			o.Errorf("Usage: /forceload %s <x> <z>", strings.ToLower(args[0]))
			return
		}
		pos, err := parseChunkPos(args[1], args[2])
		if err != nil {
			o.Error(err)
			return
		}
		if strings.ToLower(args[0]) == "add" {
			added, err := forced.Add(pos)
			if err != nil {
				o.Error(err)
			} else if added {
				o.Printf("Forced chunk %d, %d.", pos[0], pos[1])
			} else {
				o.Printf("Chunk %d, %d is already forced.", pos[0], pos[1])
			}
			return
		}
		removed, err := forced.Remove(pos)
		if err != nil {
			o.Error(err)
		} else if removed {
			o.Printf("Chunk %d, %d is no longer forced.", pos[0], pos[1])
		} else {
			o.Printf("Chunk %d, %d was not forced.", pos[0], pos[1])
		}
	default:
		o.Errorf("Unknown action %q. Use add, remove or list.", args[0])
	}
}
