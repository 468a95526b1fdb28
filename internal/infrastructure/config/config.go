// Package config loads application configuration from the environment,
// with an optional YAML overlay for settings a host process ships on
// disk. Command-line flags in cmd/quahl override both.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Socket    SocketConfig
	Browser   BrowserConfig
	Downloads DownloadsConfig
	Debug     DebugConfig
	Logging   LogConfig
}

// SocketConfig holds control socket configuration.
type SocketConfig struct {
	// Enabled activates the IPC socket; without it the application
	// runs windows only.
	Enabled bool `envconfig:"SOCKET" default:"false" yaml:"enabled"`
	// Addr is the host:port to bind. Empty means all interfaces with
	// an OS-assigned port.
	Addr string `envconfig:"SOCKET_ADDR" default:"" yaml:"addr"`
	// MaxBufferedBytes caps a session's unterminated inbound buffer;
	// exceeding it fails the connection.
	MaxBufferedBytes int `envconfig:"SOCKET_MAX_BUFFERED" default:"4194304" yaml:"max_buffered_bytes"`
	// WriteTimeoutMS bounds every socket write, so one stalled peer
	// cannot hold up push delivery to the others.
	WriteTimeoutMS int `envconfig:"SOCKET_WRITE_TIMEOUT_MS" default:"5000" yaml:"write_timeout_ms"`
}

// BrowserConfig holds browser facade configuration.
type BrowserConfig struct {
	HomeURL        string `envconfig:"HOME_URL" default:"" yaml:"home_url"`
	ToolbarVisible bool   `envconfig:"TOOLBAR_VISIBLE" default:"true" yaml:"toolbar_visible"`
	// ProbeTimeoutMS bounds the off-thread page probe that resolves a
	// window's title and icon after navigation.
	ProbeTimeoutMS int `envconfig:"PROBE_TIMEOUT_MS" default:"10000" yaml:"probe_timeout_ms"`
}

// DownloadsConfig holds download manager configuration.
type DownloadsConfig struct {
	Dir         string `envconfig:"DOWNLOADS_DIR" default:"" yaml:"dir"`
	HistoryFile string `envconfig:"DOWNLOADS_HISTORY" default:"" yaml:"history_file"`
}

// DebugConfig holds the optional local debug HTTP surface.
type DebugConfig struct {
	// Addr enables the debug server when non-empty, e.g. "127.0.0.1:7700".
	Addr             string `envconfig:"DEBUG_ADDR" default:"" yaml:"addr"`
	RateLimitRPS     int    `envconfig:"DEBUG_RATE_LIMIT_RPS" default:"50" yaml:"rate_limit_rps"`
	RateLimitBurst   int    `envconfig:"DEBUG_RATE_LIMIT_BURST" default:"100" yaml:"rate_limit_burst"`
	RateLimitEnabled bool   `envconfig:"DEBUG_RATE_LIMIT_ENABLED" default:"true" yaml:"rate_limit_enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// Load loads configuration from QUAHL_-prefixed environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("quahl", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile overlays YAML settings from path onto cfg. Missing keys keep
// their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Socket: SocketConfig{
			MaxBufferedBytes: 4 << 20,
			WriteTimeoutMS:   5000,
		},
		Browser: BrowserConfig{
			ToolbarVisible: true,
			ProbeTimeoutMS: 10000,
		},
		Debug: DebugConfig{
			RateLimitRPS:     50,
			RateLimitBurst:   100,
			RateLimitEnabled: true,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
