package shell

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		exp    string
		expErr error
	}{
		{name: "plain", raw: "echo hello", exp: "echo hello"},
		{name: "surrounding whitespace", raw: "  echo hello\n", exp: "echo hello"},
		{name: "empty", raw: "", expErr: ErrEmptyCommand},
		{name: "whitespace only", raw: " \t\n ", expErr: ErrEmptyCommand},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Validate(c.raw)
			if c.expErr != nil {
				require.ErrorIs(t, err, c.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.exp, got)
		})
	}
}

func TestInvocationTable(t *testing.T) {
	assert.Equal(t, invocation{shell: "cmd", flag: "/C"}, invocationFor("windows"))
	assert.Equal(t, invocation{shell: "sh", flag: "-c"}, invocationFor("linux"))
	assert.Equal(t, invocation{shell: "sh", flag: "-c"}, invocationFor("darwin"))
	// unknown targets get the unix shell
	assert.Equal(t, invocation{shell: "sh", flag: "-c"}, invocationFor("plan9"))
}

func TestCommandPassesTextVerbatim(t *testing.T) {
	cmd := Command("echo $HOME | wc -c", "")
	// the whole command string must be a single argv entry for the shell
	require.Len(t, cmd.Args, 3)
	assert.Equal(t, "echo $HOME | wc -c", cmd.Args[2])
	assert.NotEmpty(t, cmd.Dir)
}

func TestRunCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test commands assume a POSIX shell")
	}

	res, err := Run("printf foo; printf bar 1>&2", "")
	require.NoError(t, err)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.Equal(t, "foo", res.Stdout)
	assert.Equal(t, "bar", res.Stderr)
}

func TestRunNonzeroExitIsNotAnError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test commands assume a POSIX shell")
	}

	res, err := Run("exit 3", "")
	require.NoError(t, err)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
}

func TestRunShellMetacharacters(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test commands assume a POSIX shell")
	}

	res, err := Run("echo one && echo two | tr a-z A-Z", "")
	require.NoError(t, err)
	assert.Equal(t, "one\nTWO\n", res.Stdout)
}

func TestStartReturnsBeforeExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test commands assume a POSIX shell")
	}

	begin := time.Now()
	res, err := Start("sleep 2", "")
	require.NoError(t, err)
	assert.Greater(t, res.PID, 0)
	assert.False(t, res.StartedAt.IsZero())
	assert.Less(t, time.Since(begin), 1*time.Second)
}

func TestStartSpawnFailure(t *testing.T) {
	_, err := Start("true", "/definitely/does/not/exist")
	require.Error(t, err)
}
