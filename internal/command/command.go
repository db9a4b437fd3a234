// Package command runs external programs such as git, cargo and ruby.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner executes a program and returns its trimmed standard output.
//
//go:generate mockgen -source=command.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Error describes a program that exited unsuccessfully.
type Error struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the inherited environment.
	Env []string

	Logger *slog.Logger
}

// NewExecRunner returns an ExecRunner rooted at dir.
func NewExecRunner(dir string, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecRunner{Dir: dir, Logger: logger}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // arguments come from the caller
	cmd.Dir = r.Dir

	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.Logger != nil {
		r.Logger.Debug("running command", slog.String("cmd", name), slog.Any("args", args))
	}

	if err := cmd.Run(); err != nil {
		cerr := &Error{
			Args:     append([]string{name}, args...),
			Stderr:   strings.TrimSpace(stderr.String()),
			ExitCode: -1,
			Err:      err,
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		}

		return strings.TrimSpace(stdout.String()), cerr
	}

	return strings.TrimSpace(stdout.String()), nil
}

// ExitCode returns the exit status carried by err, or -1 when err did not
// come from a finished program.
func ExitCode(err error) int {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.ExitCode
	}

	return -1
}

// IsNotFound reports whether err means the program is not installed.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
