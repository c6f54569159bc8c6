// Package config loads the optional agent configuration file. All settings
// have defaults, so the agent runs without any file present; command-line
// flags override file values. The execution core itself reads no
// configuration and no environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the agent's startup settings.
type Config struct {
	// ListenAddr is the address the HTTP server listens on.
	ListenAddr string `yaml:"listen_addr"`

	// ErrorLog is the failure-record file path. Empty means app_error.log
	// next to the executable.
	ErrorLog string `yaml:"error_log"`

	// LogLevel is the zap level for operator logging.
	LogLevel string `yaml:"log_level"`

	// WorkDir is the working directory for executed commands. Empty means
	// the agent's own working directory.
	WorkDir string `yaml:"work_dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ListenAddr: "0.0.0.0:6565",
		LogLevel:   "info",
	}
}

// Parse parses YAML data into a Config, rejecting unknown fields so typos in
// configuration files fail early. Empty input returns the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(cfg)
	if errors.Is(err, io.EOF) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = Default().ListenAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}
	return cfg, nil
}

// Load reads the config file at path. A missing file yields the defaults; a
// file that exists but cannot be read or parsed is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
