package shell

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// RunResult holds the captured output of a synchronous execution. ExitCode is
// nil when the process was terminated by a signal rather than exiting.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode *int
}

// StartResult identifies an asynchronously started process.
type StartResult struct {
	PID       int
	StartedAt time.Time
}

// Run executes the command synchronously and captures all of stdout and
// stderr. The returned error is non-nil only when the process could not be
// spawned; a command that runs and exits nonzero is a successful Run.
func Run(command, dir string) (*RunResult, error) {
	cmd := Command(command, dir)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	err := cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Wait failed for a reason other than the command exiting
			// nonzero, e.g. an I/O error copying output.
			return nil, err
		}
	}

	res := &RunResult{
		Stdout: strings.ToValidUTF8(stdout.String(), "�"),
		Stderr: strings.ToValidUTF8(stderr.String(), "�"),
	}
	if cmd.ProcessState.Exited() {
		code := cmd.ProcessState.ExitCode()
		res.ExitCode = &code
	}
	return res, nil
}

// Start spawns the command with stdout and stderr discarded and returns as
// soon as the process exists. A detached goroutine waits on the child so the
// OS can reap it; its outcome is not observable by anyone.
func Start(command, dir string) (*StartResult, error) {
	cmd := Command(command, dir)

	// Stdout and Stderr are left nil so the child gets os.DevNull.
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go func() {
		_ = cmd.Wait()
	}()

	return &StartResult{
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}, nil
}
