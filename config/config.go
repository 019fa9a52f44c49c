// Package config provides YAML configuration for the tomato server.
//
// The config file is optional; every field has a usable default, and a
// missing file simply yields the defaults. The `tomato set-port` command
// persists a preferred port back to the file.
//
// Example configuration:
//
//	port: 8888
//	title: Tomato
//	heartbeat_timeout: 2m
//	grace_period: 3s
//	check_interval: 1s
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the preferred listen port when none is configured.
	DefaultPort = 8888

	// DefaultHeartbeatTimeout is how long the tab may stay silent before
	// the server concludes it is gone. Browsers heavily throttle timers in
	// background tabs, so this is deliberately generous.
	DefaultHeartbeatTimeout = 2 * time.Minute

	// DefaultGracePeriod is how long to wait after a going-away notice for
	// heartbeats to resume before treating the notice as a real close.
	DefaultGracePeriod = 3 * time.Second

	// DefaultCheckInterval is the period of the watchdog loop.
	DefaultCheckInterval = time.Second
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file. Use [Load] or [Parse]
// to create one with defaults and validation applied.
type Config struct {
	// Port is the preferred HTTP port. Nearby ports are probed when busy.
	Port int `yaml:"port"`

	// Title is the timer page title. Defaults to "Tomato" downstream.
	Title string `yaml:"title,omitempty"`

	// HeartbeatTimeout is the silence threshold before shutdown.
	// Accepts duration strings like "2m", "90s".
	HeartbeatTimeout Duration `yaml:"heartbeat_timeout,omitempty"`

	// GracePeriod is the reload-vs-close waiting window after a
	// going-away notice.
	GracePeriod Duration `yaml:"grace_period,omitempty"`

	// CheckInterval is how often the watchdog evaluates liveness.
	CheckInterval Duration `yaml:"check_interval,omitempty"`

	// Warmup is the initial window with no shutdown decisions.
	// Defaults to HeartbeatTimeout when unset.
	Warmup Duration `yaml:"warmup,omitempty"`
}

// Duration wraps time.Duration for YAML marshalling in both directions.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler so saved configs round-trip.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a Config populated with all defaults.
func Default() *Config {
	return &Config{
		Port:             DefaultPort,
		HeartbeatTimeout: Duration(DefaultHeartbeatTimeout),
		GracePeriod:      Duration(DefaultGracePeriod),
		CheckInterval:    Duration(DefaultCheckInterval),
		Warmup:           Duration(DefaultHeartbeatTimeout),
	}
}

// DefaultPath returns the per-user config file location, typically
// ~/.config/tomato/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "tomato", "config.yaml"), nil
}

// Load reads and parses a YAML configuration file.
//
// A missing file is not an error: defaults are returned so the server can
// run with zero configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applying defaults and validating.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = Duration(DefaultHeartbeatTimeout)
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = Duration(DefaultGracePeriod)
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = Duration(DefaultCheckInterval)
	}
	if cfg.Warmup == 0 {
		cfg.Warmup = cfg.HeartbeatTimeout
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks field ranges after defaults are applied.
func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}
	if c.HeartbeatTimeout.Duration() <= 0 {
		return errors.New("heartbeat_timeout must be positive")
	}
	if c.GracePeriod.Duration() <= 0 {
		return errors.New("grace_period must be positive")
	}
	if c.CheckInterval.Duration() <= 0 {
		return errors.New("check_interval must be positive")
	}
	if c.GracePeriod.Duration() >= c.HeartbeatTimeout.Duration() {
		return fmt.Errorf("grace_period (%s) must be shorter than heartbeat_timeout (%s)",
			c.GracePeriod.Duration(), c.HeartbeatTimeout.Duration())
	}
	return nil
}

// Save writes the config as YAML to path, creating parent directories as
// needed. Used by `tomato set-port` to persist a preferred port.
func Save(path string, cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
