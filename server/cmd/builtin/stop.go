package builtin

import (
	"github.com/dm-vev/chunkengine/server/cmd"
)

type stopCommand struct {
	srv serverAdapter
}

func newStopCommand(srv serverAdapter) cmd.Command {
	return cmd.New("stop", "Saves the world and stops the server.", "", nil, stopCommand{srv: srv})
}

func (s stopCommand) Run(_ cmd.Source, _ []string, o *cmd.Output) {
	o.Print("Stopping server...")
	if err := s.srv.Close(); err != nil {
		o.Error(err)
	}
}
