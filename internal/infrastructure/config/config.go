// Package config loads daemon configuration from the environment, with
// an optional TOML file overlay for settings that don't fit env vars.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Panel     PanelConfig     `toml:"panel"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds the HTTP listener configuration. The surface loads
// everything from this listener, so it binds loopback by default.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8600" toml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" toml:"host"`
}

// SurfaceOrigin is the origin the rendering surface sees this daemon at.
func (s ServerConfig) SurfaceOrigin() string {
	return "http://" + net.JoinHostPort(s.Host, s.Port)
}

// APIConfig holds the story API configuration. Origin is the single
// remote the content security policy allows.
type APIConfig struct {
	Origin string  `envconfig:"API_ORIGIN" default:"https://api.storydock.io" toml:"origin"`
	RPS    float64 `envconfig:"API_RPS" default:"10" toml:"rps"`
}

// StorageConfig holds durable storage paths.
type StorageConfig struct {
	Path string `envconfig:"STORAGE_PATH" default:".panelhost" toml:"path"`
}

// PanelConfig holds panel behavior configuration.
type PanelConfig struct {
	// ExtensionRoot is where panel assets live when the editor does not
	// pass one per show request.
	ExtensionRoot string `envconfig:"EXTENSION_ROOT" default:"." toml:"extension_root"`
	// FlairFile optionally extends the built-in flair table.
	FlairFile string `envconfig:"FLAIR_FILE" default:"" toml:"flair_file"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds HTTP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// Load reads configuration from environment variables. When
// PANELHOST_CONFIG names a TOML file, its values overlay the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv("PANELHOST_CONFIG"); path != "" {
		if err := overlayFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// LoadFile reads configuration from the environment and overlays the
// given TOML file.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := overlayFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or falls back to defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8600",
			Host: "127.0.0.1",
		},
		API: APIConfig{
			Origin: "https://api.storydock.io",
			RPS:    10,
		},
		Storage: StorageConfig{
			Path: ".panelhost",
		},
		Panel: PanelConfig{
			ExtensionRoot: ".",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

func overlayFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}
