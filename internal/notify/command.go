package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// subjectPlaceholder is replaced with the message subject in command arguments.
const subjectPlaceholder = "{subject}"

// errProgramRequired is returned when no program is configured.
var errProgramRequired = errors.New("notification program must be provided")

// Command pipes the message body to a local program, e.g.
// `mail -s {subject} owner@example.com`.
type Command struct {
	// program is the executable to run.
	program string
	// args are the argument templates.
	args []string
}

// NewCommand creates a command notifier from settings.
func NewCommand(cfg config.CommandNotify) (*Command, error) {
	if cfg.Program == "" {
		return nil, errProgramRequired
	}

	return &Command{
		program: cfg.Program,
		args:    append([]string(nil), cfg.Args...),
	}, nil
}

// Name returns the transport name.
func (c *Command) Name() string { return "command" }

// Notify runs the program with the body on stdin and waits for it to exit.
func (c *Command) Notify(ctx context.Context, msg door.Message) error {
	args := make([]string, len(c.args))
	for i, arg := range c.args {
		args[i] = strings.ReplaceAll(arg, subjectPlaceholder, msg.Subject)
	}

	//nolint:gosec // Program and arguments come from the operator's configuration.
	cmd := exec.CommandContext(ctx, c.program, args...)
	cmd.Stdin = strings.NewReader(msg.Body + "\n")

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w: %s", c.program, err, strings.TrimSpace(output.String()))
	}

	return nil
}
