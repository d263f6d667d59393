// Package config loads runtime configuration from an optional YAML file with
// environment overrides. A missing config file is not an error; defaults
// keep the tool usable with zero setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	EnvHome     = "CODEGRAPH_HOME"
	EnvHTTPAddr = "CODEGRAPH_HTTP_ADDR"
)

// DefaultHTTPAddr is the HTTP API bind address when nothing overrides it
const DefaultHTTPAddr = "127.0.0.1:7432"

// Config is the resolved runtime configuration
type Config struct {
	// Home is the registry root holding repos/<id>/{meta.json,graph.db}
	Home string `yaml:"home"`

	// HTTPAddr is the HTTP API bind address
	HTTPAddr string `yaml:"httpAddr"`
}

// Load resolves configuration: .env file, then YAML at <home>/config.yaml,
// then environment overrides
func Load() (*Config, error) {
	// Best effort; a missing .env is the normal case
	_ = godotenv.Load()

	home := os.Getenv(EnvHome)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		home = filepath.Join(userHome, ".codegraph")
	}

	cfg := &Config{
		Home:     home,
		HTTPAddr: DefaultHTTPAddr,
	}

	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if cfg.Home == "" {
		cfg.Home = home
	}

	if addr := os.Getenv(EnvHTTPAddr); addr != "" {
		cfg.HTTPAddr = addr
	}
	return cfg, nil
}
