package builtin

import (
	"strconv"
	"strings"

	"github.com/dm-vev/chunkengine/server/cmd"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// viewerNamespace is used to derive viewer ids from the names given on the
// console.
var viewerNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("chunkengine:viewer"))

type viewerCommand struct {
	srv serverAdapter
}

func newViewerCommand(srv serverAdapter) cmd.Command {
	return cmd.New(
		"viewer",
		"Adds, moves or removes a named viewer that keeps the columns around it loaded.",
		"<add|move|remove> <name> [x] [z] [radius]",
		nil,
		viewerCommand{srv: srv},
	)
}

func (c viewerCommand) Run(_ cmd.Source, args []string, o *cmd.Output) {
	if len(args) < 2 {
		o.Errorf("Usage: /viewer <add|move|remove> <name> [x] [z] [radius]")
		return
	}
	action, name := strings.ToLower(args[0]), args[1]
	id := uuid.NewSHA1(viewerNamespace, []byte(strings.ToLower(name)))

	switch action {
	case "remove":
		if !c.srv.RemoveViewer(id) {
			o.Errorf("No viewer named %v.", name)
			return
		}
		o.Printf("Removed viewer %v.", name)
		return
	case "add", "move":
	default:
		o.Errorf("Unknown action %q. Use add, move or remove.", args[0])
		return
	}
	if len(args) < 4 {
		o.Errorf("Usage: /viewer %s <name> <x> <z> [radius]", action)
		return
	}
	x, errX := strconv.ParseFloat(args[2], 64)
	z, errZ := strconv.ParseFloat(args[3], 64)
	if errX != nil || errZ != nil {
		o.Errorf("Invalid position %v %v.", args[2], args[3])
		return
	}
	pos := mgl64.Vec3{x, 0, z}

	if action == "move" {
		if !c.srv.MoveViewer(id, pos) {
			o.Errorf("No viewer named %v.", name)
			return
		}
		o.Printf("Moved viewer %v to %.1f, %.1f.", name, x, z)
		return
	}
	radius := 8
	if len(args) > 4 {
		r, err := strconv.Atoi(args[4])
		if err != nil || r < 0 {
			o.Errorf("Invalid radius %v.", args[4])
			return
		}
		radius = r
	}
	lo := c.srv.AddViewer(id, pos, radius)
	o.Printf("Added viewer %v at chunk %d, %d with radius %d.", name, lo.Pos()[0], lo.Pos()[1], lo.Radius())
}
