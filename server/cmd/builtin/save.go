package builtin

import (
	"time"

	"github.com/dm-vev/chunkengine/server/cmd"
)

type saveCommand struct {
	srv serverAdapter
}

func newSaveCommand(srv serverAdapter) cmd.Command {
	return cmd.New("save", "Saves all modified columns.", "", []string{"save-all"}, saveCommand{srv: srv})
}

func (s saveCommand) Run(_ cmd.Source, _ []string, o *cmd.Output) {
	start := time.Now()
	before := s.srv.Status().Level.Saved
	if err := s.srv.Save(); err != nil {
		o.Error(err)
		return
	}
	saved := s.srv.Status().Level.Saved - before
	o.Printf("Saved %d columns in %s.", saved, time.Since(start).Round(time.Millisecond))
}
