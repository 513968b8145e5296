// Package cmd implements a small line based command system used by the
// console of the server.
package cmd

import (
	"fmt"
	"strings"
	"sync"
)

// Source is the source of a command execution. Output of the command is sent
// back to it.
type Source interface {
	// SendCommandOutput sends the output of a command to the Source.
	SendCommandOutput(o *Output)
}

// Runnable is the body of a Command. Run is called with the arguments of the
// command line, excluding the name of the command.
type Runnable interface {
	Run(src Source, args []string, o *Output)
}

// RunnableFunc is a function implementing Runnable.
type RunnableFunc func(src Source, args []string, o *Output)

// Run ...
func (f RunnableFunc) Run(src Source, args []string, o *Output) {
	f(src, args, o)
}

// Command is a command that may be executed by a Source.
type Command struct {
	name        string
	description string
	usage       string
	aliases     []string
	r           Runnable
}

// New creates a Command with the name, description and aliases passed. The
// usage line is shown when the command is used incorrectly.
func New(name, description, usage string, aliases []string, r Runnable) Command {
	return Command{name: strings.ToLower(name), description: description, usage: usage, aliases: aliases, r: r}
}

// Name returns the name of the command.
func (c Command) Name() string { return c.name }

// Description returns the description of the command.
func (c Command) Description() string { return c.description }

// Aliases returns the aliases of the command, excluding its name.
func (c Command) Aliases() []string { return c.aliases }

// Usage returns the usage line of the command.
func (c Command) Usage() string {
	if c.usage == "" {
		return "/" + c.name
	}
	return "/" + c.name + " " + c.usage
}

// Execute runs the command with the arguments passed and sends its output to
// the Source.
func (c Command) Execute(args []string, src Source) {
	o := &Output{}
	c.r.Run(src, args, o)
	src.SendCommandOutput(o)
}

var (
	commandsMu sync.RWMutex
	commands   = map[string]Command{}
)

// Register registers a command under its name and aliases. Commands
// registered earlier with the same name or alias are replaced.
func Register(c Command) {
	commandsMu.Lock()
	defer commandsMu.Unlock()
	commands[c.name] = c
	for _, alias := range c.aliases {
		commands[strings.ToLower(alias)] = c
	}
}

// ByAlias returns the command registered under the name or alias passed.
func ByAlias(alias string) (Command, bool) {
	commandsMu.RLock()
	defer commandsMu.RUnlock()
	c, ok := commands[strings.ToLower(alias)]
	return c, ok
}

// Commands returns all registered commands keyed by name and alias.
func Commands() map[string]Command {
	commandsMu.RLock()
	defer commandsMu.RUnlock()
	m := make(map[string]Command, len(commands))
	for k, v := range commands {
		m[k] = v
	}
	return m
}

// Output holds the messages and errors produced by a command.
type Output struct {
	messages []string
	errors   []error
}

// Print adds a message to the Output.
func (o *Output) Print(a ...any) {
	o.messages = append(o.messages, fmt.Sprint(a...))
}

// Printf adds a formatted message to the Output.
func (o *Output) Printf(format string, a ...any) {
	o.messages = append(o.messages, fmt.Sprintf(format, a...))
}

// Error adds an error to the Output.
func (o *Output) Error(a ...any) {
	o.errors = append(o.errors, fmt.Errorf("%s", fmt.Sprint(a...)))
}

// Errorf adds a formatted error to the Output.
func (o *Output) Errorf(format string, a ...any) {
	o.errors = append(o.errors, fmt.Errorf(format, a...))
}

// Messages returns the messages of the Output.
func (o *Output) Messages() []string { return o.messages }

// Errors returns the errors of the Output.
func (o *Output) Errors() []error { return o.errors }
