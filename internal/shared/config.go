package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Playback  PlaybackConfig  `toml:"playback"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PlaybackConfig controls the synchronization coordinator.
type PlaybackConfig struct {
	CurrentPlaylist  int64 `toml:"current_playlist"`
	SendTimeoutMS    int   `toml:"send_timeout_ms"`
	MaxParallelSends int   `toml:"max_parallel_sends"`
}

// SendTimeout returns the per-connection send timeout, defaulting to five seconds.
func (p PlaybackConfig) SendTimeout() time.Duration {
	if p.SendTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.SendTimeoutMS) * time.Millisecond
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// TelemetryConfig contains OpenTelemetry tracing settings.
type TelemetryConfig struct {
	ServiceName  string  `toml:"service_name"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	SampleRate   float64 `toml:"sample_rate"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadConfigOrDefault loads the config at path when it exists and falls back to [DefaultConfig].
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration values from the process environment.
//
// CURRENT_PLAYLIST selects the playlist under playback control and
// OTEL_EXPORTER_OTLP_ENDPOINT the trace exporter endpoint.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	if raw := strings.TrimSpace(getenv("CURRENT_PLAYLIST")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: CURRENT_PLAYLIST=%q", ErrInvalidConfig, raw)
		}
		c.Playback.CurrentPlaylist = id
	}

	if endpoint := strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		c.Telemetry.OTLPEndpoint = endpoint
	}

	return nil
}
