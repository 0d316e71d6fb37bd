package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./plst.db" {
			t.Errorf("expected database path ./plst.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 7272 {
			t.Errorf("expected server port 7272, got %d", config.Server.Port)
		}

		if config.Server.Addr() != "127.0.0.1:7272" {
			t.Errorf("expected addr 127.0.0.1:7272, got %s", config.Server.Addr())
		}

		if config.Playback.CurrentPlaylist != 0 {
			t.Errorf("expected no controlled playlist, got %d", config.Playback.CurrentPlaylist)
		}

		if config.Playback.SendTimeout() != 5*time.Second {
			t.Errorf("expected 5s send timeout, got %v", config.Playback.SendTimeout())
		}

		if config.Log.Level != "info" {
			t.Errorf("expected log level info, got %s", config.Log.Level)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 2
max_idle_conns = 2

[server]
host = "0.0.0.0"
port = 8080
rate_limit = 10.0
rate_burst = 20

[playback]
current_playlist = 3
send_timeout_ms = 250
max_parallel_sends = 4

[log]
level = "debug"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Playback.CurrentPlaylist != 3 {
			t.Errorf("expected current playlist 3, got %d", config.Playback.CurrentPlaylist)
		}

		if config.Playback.SendTimeout() != 250*time.Millisecond {
			t.Errorf("expected 250ms send timeout, got %v", config.Playback.SendTimeout())
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[database\npath = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfigOrDefault missing file", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Server.Port != DefaultConfig().Server.Port {
			t.Error("expected default config for missing file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"CURRENT_PLAYLIST":            "12",
			"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318",
		}
		config := DefaultConfig()
		if err := config.ApplyEnv(func(k string) string { return env[k] }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Playback.CurrentPlaylist != 12 {
			t.Errorf("expected current playlist 12, got %d", config.Playback.CurrentPlaylist)
		}
		if config.Telemetry.OTLPEndpoint != "collector:4318" {
			t.Errorf("expected endpoint override, got %s", config.Telemetry.OTLPEndpoint)
		}

		bad := DefaultConfig()
		err := bad.ApplyEnv(func(k string) string {
			if k == "CURRENT_PLAYLIST" {
				return "abc"
			}
			return ""
		})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
