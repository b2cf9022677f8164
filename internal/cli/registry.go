package cli

import (
	"fmt"
	"os"
)

// Command is a named CLI command with subcommand-style argument handling
type Command interface {
	Name() string
	Description() string
	Run(args []string) error
}

// Registry dispatches CLI invocations to registered commands
type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

func (r *Registry) Run(args []string) error {
	if len(args) < 1 {
		r.printUsage()
		return fmt.Errorf("command required")
	}

	name := args[0]
	cmd, ok := r.commands[name]
	if !ok {
		r.printUsage()
		return fmt.Errorf("unknown command: %s", name)
	}

	return cmd.Run(args[1:])
}

func (r *Registry) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: grantly-cli <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	for _, cmd := range r.commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", cmd.Name(), cmd.Description())
	}
}
