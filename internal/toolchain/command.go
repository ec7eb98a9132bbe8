// Package toolchain runs the external rustup and cargo processes testinator
// drives: toolchain installation, tests, dependency pinning and fuzzing.
//
// Commands are executed directly (argv, no shell). Output is captured in
// full; the caller decides what to print.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/sgeisler/testinator/internal/constants"
)

// Command describes one external process invocation.
type Command struct {
	// Name is the executable, resolved through PATH.
	Name string
	// Args are passed verbatim.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// Result captures the outcome of a single command.
type Result struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration_ns"`
}

// Success reports whether the process exited zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// CombinedOutput joins stdout and stderr for display.
func (r *Result) CombinedOutput() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// CommandRunner defines the interface for executing external commands.
// This allows for testing by injecting mock implementations.
type CommandRunner interface {
	// Run executes cmd and returns its captured result. A non-nil error means
	// the process could not be started, was killed, or exited non-zero; the
	// result is populated whenever the process ran.
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct {
	// LiveOutput, when set, receives stdout and stderr as they are produced.
	LiveOutput io.Writer
}

// Run executes the command. When ctx is cancelled the whole process group is
// sent SIGTERM, then SIGKILL after constants.ProcessKillGrace.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	configureProcessGroup(cmd)
	cmd.WaitDelay = constants.ProcessKillGrace

	var outBuf, errBuf bytes.Buffer
	if r.LiveOutput != nil {
		cmd.Stdout = io.MultiWriter(&outBuf, r.LiveOutput)
		cmd.Stderr = io.MultiWriter(&errBuf, r.LiveOutput)
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		if result.ExitCode == 0 {
			result.ExitCode = -1
		}
	}

	return result, err
}

// Ensure ExecRunner implements CommandRunner.
var _ CommandRunner = (*ExecRunner)(nil)
