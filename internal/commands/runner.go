// Package commands runs the external tools the roller drives and checks the workspace.
package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its standard output
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// Command describes one external invocation
type Command struct {
	Args []string // program followed by its arguments
	Dir  string
	Env  map[string]string // added on top of the current environment

	// MayFail marks a command whose failure the caller ignores; it is logged at debug only.
	MayFail bool
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// CommandError is returned when an external command exits non-zero or cannot be started
type CommandError struct {
	Command  Command
	Output   string
	ExitCode int // -1 when the process never ran
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command %q failed to start: %v", e.Command.String(), e.Err)
	}
	return fmt.Sprintf("command %q exited with status %d", e.Command.String(), e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run executes the command, logging it at debug level and its output on failure
func (ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) == 0 {
		return "", fmt.Errorf("empty command")
	}

	slog.Debug("Running command", "cmd", cmd.String(), "cwd", cmd.Dir)
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...) //nolint:gosec // Arguments are built by the roller
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		slog.Debug("Extra environment", "env", cmd.Env)
		c.Env = os.Environ()
		for k, v := range cmd.Env {
			c.Env = append(c.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	output := stdout.String()
	if err == nil {
		return output, nil
	}

	cmdErr := &CommandError{Command: cmd, Output: output + stderr.String(), ExitCode: -1, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	if cmd.MayFail {
		slog.Debug("Command failed", "cmd", cmd.String(), "cwd", cmd.Dir, "status", cmdErr.ExitCode, "output", cmdErr.Output)
	} else {
		slog.Error("Command failed", "cmd", cmd.String(), "cwd", cmd.Dir, "status", cmdErr.ExitCode, "output", cmdErr.Output)
	}
	return output, cmdErr
}
