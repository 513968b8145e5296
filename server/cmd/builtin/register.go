package builtin

import (
	"github.com/dm-vev/chunkengine/server/cmd"
)

// Register registers the built-in command set on the provided server.
func Register(srv serverAdapter) {
	cmd.Register(newHelpCommand())
	cmd.Register(newAboutCommand(srv))
	cmd.Register(newStatusCommand(srv))
	cmd.Register(newSaveCommand(srv))
	cmd.Register(newForceloadCommand(srv))
	cmd.Register(newTicketsCommand(srv))
	cmd.Register(newViewerCommand(srv))
	cmd.Register(newGCCommand(srv))
	cmd.Register(newStopCommand(srv))
}
