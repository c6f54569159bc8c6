package stream

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/machagent/machagent/agent/errlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requirePOSIXShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test commands assume a POSIX shell")
	}
}

func newTestPair(t *testing.T, workDir string) *Client {
	t.Helper()

	log := zap.NewNop().Sugar()
	server := httptest.NewServer(&Server{
		Log:     log,
		ErrLog:  errlog.New(log, filepath.Join(t.TempDir(), "app_error.log")),
		WorkDir: workDir,
	})
	t.Cleanup(server.Close)

	return &Client{
		HTTPClient: server.Client(),
		URL:        server.URL,
		Logger:     log,
	}
}

func TestRun(t *testing.T) {
	requirePOSIXShell(t)
	client := newTestPair(t, "")

	var stdout, stderr bytes.Buffer
	res, err := client.Run(context.Background(), "printf foo; printf bar 1>&2", &stdout, &stderr)
	require.NoError(t, err)

	assert.Greater(t, res.PID, 0)
	assert.Equal(t, 0, res.ExitCode)
	assert.GreaterOrEqual(t, res.TimeMS, int64(0))
	assert.Equal(t, "foo", stdout.String())
	assert.Equal(t, "bar", stderr.String())
}

func TestRunChunksLargeOutput(t *testing.T) {
	requirePOSIXShell(t)
	client := newTestPair(t, "")

	// well past the per-message write limit, so output spans many messages
	var exp strings.Builder
	for i := 1; i <= 20000; i++ {
		fmt.Fprintf(&exp, "%d\n", i)
	}

	var stdout bytes.Buffer
	res, err := client.Run(context.Background(), "seq 1 20000", &stdout, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, exp.String(), stdout.String())
}

func TestRunNonzeroExit(t *testing.T) {
	requirePOSIXShell(t)
	client := newTestPair(t, "")

	res, err := client.Run(context.Background(), "exit 7", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
}

func TestRunEmptyCommand(t *testing.T) {
	client := newTestPair(t, "")

	_, err := client.Run(context.Background(), " \t ", nil, nil)
	require.Error(t, err)
	assert.True(t, IsRemote(err))
	assert.Contains(t, err.Error(), "non-empty")
}

func TestRunSpawnFailure(t *testing.T) {
	requirePOSIXShell(t)
	client := newTestPair(t, "/definitely/does/not/exist")

	_, err := client.Run(context.Background(), "true", nil, nil)
	require.Error(t, err)
	assert.True(t, IsRemote(err))
}

func TestCancelDropsConnection(t *testing.T) {
	requirePOSIXShell(t)
	client := newTestPair(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	begin := time.Now()
	_, err := client.Run(ctx, "sleep 30", nil, nil)
	require.Error(t, err)
	assert.False(t, IsRemote(err))
	assert.Less(t, time.Since(begin), 5*time.Second)
}
