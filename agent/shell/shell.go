package shell

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrEmptyCommand is returned by Validate for command text that is empty
// after trimming.
var ErrEmptyCommand = errors.New("command must be a non-empty string")

// invocation describes how a platform's shell accepts a command string.
type invocation struct {
	shell string
	flag  string
}

// invocations is the shell strategy table keyed by GOOS family. Anything not
// listed here falls through to the "unix" entry.
var invocations = map[string]invocation{
	"windows": {shell: "cmd", flag: "/C"},
	"unix":    {shell: "sh", flag: "-c"},
}

func invocationFor(goos string) invocation {
	if inv, ok := invocations[goos]; ok {
		return inv
	}
	return invocations["unix"]
}

// Validate trims the raw command text and rejects commands that are empty
// after trimming. It returns the trimmed command.
func Validate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyCommand
	}
	return trimmed, nil
}

// Command builds an exec.Cmd that passes the command string to the platform
// shell as a single argument. The working directory is dir, or the process
// working directory when dir is empty, or "." when even that is unknown.
func Command(command, dir string) *exec.Cmd {
	inv := invocationFor(runtime.GOOS)
	cmd := exec.Command(inv.shell, inv.flag, command)
	cmd.Dir = workDir(dir)
	return cmd
}

func workDir(dir string) string {
	if dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
