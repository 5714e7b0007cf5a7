// Package config provides configuration parsing and validation for the
// ping probe.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/infrasonar/ping-probe/internal/check"
)

// Config represents the complete probe configuration.
type Config struct {
	Probe  ProbeConfig   `yaml:"probe"`
	Assets []AssetConfig `yaml:"assets"`
	Hub    HubConfig     `yaml:"hub"`
	Health HealthConfig  `yaml:"health"`
}

// ProbeConfig contains probe-wide settings.
type ProbeConfig struct {
	Name      string `yaml:"name"`       // probe identity reported to the hub
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json, auto

	// CheckInterval is how often each asset is probed.
	CheckInterval time.Duration `yaml:"check_interval"`

	// CheckTimeout bounds one complete check invocation. A check that
	// overruns it is aborted, not retried.
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// Privileged selects raw ICMP sockets. When false, datagram
	// oriented ICMP sockets are used (no root required on Linux with
	// the ping_group_range sysctl).
	Privileged bool `yaml:"privileged"`

	// SessionsPerSecond rate-limits echo session starts across all
	// assets. 0 disables the limiter.
	SessionsPerSecond float64 `yaml:"sessions_per_second"`

	// SessionBurst is the limiter burst size.
	SessionBurst int `yaml:"session_burst"`
}

// AssetConfig defines one monitored asset and its optional ping
// overrides. Unset ping fields fall back to the check defaults.
type AssetConfig struct {
	ID   int          `yaml:"id"`
	Name string       `yaml:"name"`
	Ping check.Config `yaml:"ping"`
}

// HubConfig defines the report forwarder settings.
type HubConfig struct {
	Enabled   bool            `yaml:"enabled"`
	URL       string          `yaml:"url"`   // ws:// or wss:// endpoint
	Token     string          `yaml:"token"` // bearer token, optional
	QueueSize int             `yaml:"queue_size"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig defines hub reconnection behavior.
type ReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       float64       `yaml:"jitter"`
}

// HealthConfig defines the health/metrics HTTP server settings.
type HealthConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Probe: ProbeConfig{
			Name:              "ping",
			LogLevel:          "info",
			LogFormat:         "auto",
			CheckInterval:     5 * time.Minute,
			CheckTimeout:      2 * time.Minute,
			Privileged:        false,
			SessionsPerSecond: 10,
			SessionBurst:      5,
		},
		Assets: []AssetConfig{},
		Hub: HubConfig{
			Enabled:   false,
			URL:       "",
			QueueSize: 128,
			Reconnect: ReconnectConfig{
				InitialDelay: 1 * time.Second,
				MaxDelay:     60 * time.Second,
				Multiplier:   2.0,
				Jitter:       0.2,
			},
		},
		Health: HealthConfig{
			Enabled:      false,
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Load reads and validates a configuration file. Unset fields keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors. Ping bounds are
// enforced here so a bad asset fails at startup, not mid-schedule.
func (c *Config) Validate() error {
	if c.Probe.Name == "" {
		return fmt.Errorf("probe.name must not be empty")
	}
	if c.Probe.CheckInterval < 10*time.Second {
		return fmt.Errorf("probe.check_interval must be at least 10s, got %s", c.Probe.CheckInterval)
	}
	if c.Probe.CheckTimeout <= 0 {
		return fmt.Errorf("probe.check_timeout must be positive, got %s", c.Probe.CheckTimeout)
	}
	if c.Probe.SessionsPerSecond < 0 {
		return fmt.Errorf("probe.sessions_per_second must not be negative")
	}

	seen := make(map[int]string, len(c.Assets))
	for i, asset := range c.Assets {
		if asset.Name == "" {
			return fmt.Errorf("assets[%d].name must not be empty", i)
		}
		if prev, ok := seen[asset.ID]; ok {
			return fmt.Errorf("assets[%d].id %d already used by %q", i, asset.ID, prev)
		}
		seen[asset.ID] = asset.Name

		if err := validatePing(i, asset.Ping); err != nil {
			return err
		}
	}

	if c.Hub.Enabled {
		if c.Hub.URL == "" {
			return fmt.Errorf("hub.url must be set when the hub is enabled")
		}
		if c.Hub.QueueSize < 1 {
			return fmt.Errorf("hub.queue_size must be at least 1")
		}
	}

	if c.Health.Enabled && c.Health.Address == "" {
		return fmt.Errorf("health.address must be set when the health server is enabled")
	}

	return nil
}

// validatePing enforces the documented ping bounds for explicitly set
// fields; zero means "use the default" and is always valid.
func validatePing(idx int, ping check.Config) error {
	if ping.Count != 0 && (ping.Count < 1 || ping.Count > 9) {
		return fmt.Errorf("assets[%d].ping.count must be 1..9, got %d", idx, ping.Count)
	}
	if ping.Interval != 0 && (ping.Interval < 1 || ping.Interval > 9) {
		return fmt.Errorf("assets[%d].ping.interval must be 1..9, got %d", idx, ping.Interval)
	}
	if ping.Timeout < 0 {
		return fmt.Errorf("assets[%d].ping.timeout must be positive, got %d", idx, ping.Timeout)
	}
	return nil
}
