package web

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Runner executes one scout run for the given input.
type Runner interface {
	Run(ctx context.Context, input string) (*RunResult, error)
}

// RunResult is the captured output of a run.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a run that finished with a non-zero status.
type ExitError struct {
	Result *RunResult
	Err    error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs a command with the input appended as its last argument.
type ExecRunner struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// DefaultRunner runs "gridscout -once -find <input>".
func DefaultRunner() *ExecRunner {
	return &ExecRunner{
		Command: "gridscout",
		Args:    []string{"-once", "-find"},
		Timeout: 2 * time.Minute,
	}
}

// Run executes the command and captures stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, input string) (*RunResult, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), r.Args...), input)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &RunResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Result: res, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
