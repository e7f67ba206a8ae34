// Package runner provides structured external process execution.
// Commands are an executable plus an explicit argument list; the exit
// status is the only success signal, output is captured as diagnostics.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command describes one external process invocation.
type Command struct {
	// Path is the executable name, resolved via PATH.
	Path string

	// Args is the explicit argument list. Never a shell string.
	Args []string

	// Timeout bounds the invocation. Zero means no timeout.
	Timeout time.Duration
}

// String renders the command for logs and diagnostics.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of one invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Ok reports whether the process exited with status zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Diagnostic returns the most useful error text the process produced,
// preferring stderr. May be empty when the tool is silent.
func (r Result) Diagnostic() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner executes external commands. Implementations must be safe for
// sequential reuse; the provisioning pipeline is single-threaded.
type Runner interface {
	// Run executes the command and returns its result. A non-zero exit
	// status is reported via Result, not via error; error is reserved
	// for failures to start or complete the process at all.
	Run(ctx context.Context, cmd Command) (Result, error)

	// LookPath reports whether an executable is resolvable via PATH.
	LookPath(name string) bool
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (e *ExecRunner) Run(ctx context.Context, command Command) (Result, error) {
	if command.Path == "" {
		return Result{}, fmt.Errorf("command path is required")
	}

	runCtx := ctx
	if command.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command.Path, command.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return result, fmt.Errorf("command %q aborted: %w", command.String(), ctxErr)
		}
		return result, fmt.Errorf("failed to execute %q: %w", command.String(), err)
	}

	result.ExitCode = 0
	return result, nil
}

// LookPath implements Runner.
func (e *ExecRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
