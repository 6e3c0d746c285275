// Package config loads daemon settings for the serve command.
// Precedence is fixed: built-in defaults, then the YAML file, then
// AGENTBOX_-prefixed environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is picked up from the working directory when no
// config path is given.
const DefaultFileName = "agentbox.yaml"

// Config holds the daemon settings.
type Config struct {
	DatabasePath  string  `yaml:"database_path" env:"AGENTBOX_DATABASE_PATH"`
	ListenAddr    string  `yaml:"listen_addr" env:"AGENTBOX_LISTEN_ADDR"`
	TracesDir     string  `yaml:"traces_dir" env:"AGENTBOX_TRACES_DIR"`
	PlaybackSpeed float64 `yaml:"playback_speed" env:"AGENTBOX_PLAYBACK_SPEED"`
	OTLPEndpoint  string  `yaml:"otlp_endpoint" env:"AGENTBOX_OTLP_ENDPOINT"`
	ServiceName   string  `yaml:"service_name" env:"AGENTBOX_SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabasePath:  "agentbox.db",
		ListenAddr:    ":8765",
		TracesDir:     "traces",
		PlaybackSpeed: 1,
		ServiceName:   "agentbox",
	}
}

// Load resolves the effective configuration. A non-empty path names a
// config file that must exist; with an empty path the default file is
// used when present and silently skipped when not.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decodeStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file is fine; defaults plus env apply.
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeStrict parses YAML rejecting unknown fields (catches typos like
// "listen_adr:"). An empty file leaves the defaults untouched.
func decodeStrict(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.DatabasePath == "" {
		return errors.New("database path must not be empty")
	}
	if math.IsNaN(c.PlaybackSpeed) || math.IsInf(c.PlaybackSpeed, 0) || c.PlaybackSpeed <= 0 {
		return fmt.Errorf("playback speed must be a positive number, got %v", c.PlaybackSpeed)
	}
	return nil
}
