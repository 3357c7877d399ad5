// Package config loads and saves this program's TOML configuration file,
// following the teacher's internal/core/config/config.go shape
// (DefaultConfig/Load/Save, restrictive file permissions).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LogConfig controls the ring-buffer handler's retention.
type LogConfig struct {
	RingBufferSize int  `toml:"ring_buffer_size"`
	ShowTimestamps bool `toml:"show_timestamps"`
}

// RateLimitConfig controls the DAP bridge's inbound request throttle.
type RateLimitConfig struct {
	DAPRequestsPerSecond float64 `toml:"dap_requests_per_second"`
	DAPBurst             int     `toml:"dap_burst"`
}

// Config is the program's full configuration.
type Config struct {
	TargetHost            string          `toml:"target_host"`
	ControlPort           int             `toml:"control_port"`
	ConnectTimeoutSeconds int             `toml:"connect_timeout_seconds"`
	Log                   LogConfig       `toml:"log"`
	RateLimit             RateLimitConfig `toml:"rate_limit"`
}

// DefaultConfig returns a Config with the values a fresh install should
// start from.
func DefaultConfig() *Config {
	return &Config{
		TargetHost:            "",
		ControlPort:           8081,
		ConnectTimeoutSeconds: 60,
		Log: LogConfig{
			RingBufferSize: 1000,
			ShowTimestamps: true,
		},
		RateLimit: RateLimitConfig{
			DAPRequestsPerSecond: 50,
			DAPBurst:             100,
		},
	}
}

// Load reads the config file at path, or returns DefaultConfig if it
// doesn't exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	// SECURITY: config may record a target host/port reachable only on a
	// trusted LAN; keep the file readable by its owner alone.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
