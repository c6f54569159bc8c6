package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:6565", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ErrorLog)
	assert.Empty(t, cfg.WorkDir)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("listen_addr: 127.0.0.1:7777\nlog_level: debug\nerror_log: /var/log/agent_errors.log\n"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7777", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/log/agent_errors.log", cfg.ErrorLog)
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("work_dir: /tmp\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp", cfg.WorkDir)
	assert.Equal(t, "0.0.0.0:6565", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("listen_adr: 127.0.0.1:7777\n"))
	require.Error(t, err)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("listen_addr: [\n"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "agent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: 0.0.0.0:9090\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
}
