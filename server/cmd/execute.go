package cmd

import (
	"strings"
)

// ExecuteLine executes a command line on behalf of the Source passed. A
// leading slash is optional. If the command cannot be found, an error is sent
// back to the Source.
func ExecuteLine(source Source, commandLine string) {
	if source == nil {
		panic("cmd.ExecuteLine: source must not be nil")
	}
	args := strings.Fields(commandLine)
	if len(args) == 0 {
		return
	}
	name := strings.TrimPrefix(args[0], "/")
	if name == "" {
		return
	}

	command, ok := ByAlias(name)
	if !ok {
		output := &Output{}
		output.Errorf("Unknown command: %v. Use /help to list commands.", name)
		source.SendCommandOutput(output)
		return
	}
	command.Execute(args[1:], source)
}
