package builtin

import (
	"sort"
	"strings"

	"github.com/dm-vev/chunkengine/server/cmd"
)

type helpCommand struct{}

func newHelpCommand() cmd.Command {
	return cmd.New("help", "Shows available commands and their usage.", "[command]", []string{"?"}, helpCommand{})
}

func (helpCommand) Run(_ cmd.Source, args []string, o *cmd.Output) {
	if len(args) > 0 {
		name := strings.ToLower(strings.TrimPrefix(args[0], "/"))
		command, found := cmd.ByAlias(name)
		if !found {
			o.Errorf("Unknown command: %v. Use /help to list commands.", name)
			return
		}
		if desc := command.Description(); desc != "" {
			o.Print(desc)
		}
		o.Print("Usage: " + command.Usage())
		return
	}

	commands := cmd.Commands()
	names := make([]string, 0, len(commands))
	for alias, command := range commands {
		if command.Name() != alias {
			continue
		}
		names = append(names, alias)
	}
	if len(names) == 0 {
		o.Print("No commands available.")
		return
	}
	sort.Strings(names)

	o.Printf("Available commands (%d):", len(names))
	for _, name := range names {
		command, _ := cmd.ByAlias(name)
		line := "/" + name
		if desc := command.Description(); desc != "" {
			line += " - " + desc
		}
		o.Print(line)
	}
}
