package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:        "valid default configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "empty server URL",
			mutate: func(c *Config) {
				c.Server.BaseURL = ""
			},
			expectError: true,
		},
		{
			name: "server URL without scheme",
			mutate: func(c *Config) {
				c.Server.BaseURL = "192.168.31.58:9000"
			},
			expectError: true,
		},
		{
			name: "server URL with unsupported scheme",
			mutate: func(c *Config) {
				c.Server.BaseURL = "ftp://example.com"
			},
			expectError: true,
		},
		{
			name: "unsupported sample rate",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 11025
			},
			expectError: true,
		},
		{
			name: "invalid channel count",
			mutate: func(c *Config) {
				c.Audio.Channels = 4
			},
			expectError: true,
		},
		{
			name: "invalid bit depth",
			mutate: func(c *Config) {
				c.Audio.BitDepth = 24
			},
			expectError: true,
		},
		{
			name: "zero upload timeout",
			mutate: func(c *Config) {
				c.Upload.Timeout = 0
			},
			expectError: true,
		},
		{
			name: "zero jitter window",
			mutate: func(c *Config) {
				c.Progress.JitterWindow = 0
			},
			expectError: true,
		},
		{
			name: "diag enabled with invalid port",
			mutate: func(c *Config) {
				c.Diag.Enabled = true
				c.Diag.Port = 70000
			},
			expectError: true,
		},
		{
			name: "diag disabled ignores port",
			mutate: func(c *Config) {
				c.Diag.Enabled = false
				c.Diag.Port = 0
			},
			expectError: false,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			expectError: true,
		},
		{
			name: "invalid log format",
			mutate: func(c *Config) {
				c.Logging.Format = "xml"
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Audio.SampleRate)
	}

	if cfg.Upload.Timeout != 30 {
		t.Errorf("expected default upload timeout 30, got %d", cfg.Upload.Timeout)
	}

	if cfg.Progress.Enabled {
		t.Error("progress channel should be disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  base_url: "http://192.168.31.58:9000"
upload:
  timeout: 60
progress:
  enabled: true
  jitter_window: 4
  handshake_timeout: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.BaseURL != "http://192.168.31.58:9000" {
		t.Errorf("unexpected base URL: %s", cfg.Server.BaseURL)
	}

	if got := cfg.Upload.GetTimeoutDuration(); got != 60*time.Second {
		t.Errorf("expected timeout 60s, got %v", got)
	}

	if !cfg.Progress.Enabled {
		t.Error("expected progress channel enabled")
	}

	if cfg.Progress.JitterWindow != 4 {
		t.Errorf("expected jitter window 4, got %d", cfg.Progress.JitterWindow)
	}

	// Fields not present in the file keep their defaults.
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Audio.SampleRate)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a mapping"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error for invalid YAML")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RECORDER_SERVER_URL", "https://recorder.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.BaseURL != "https://recorder.example.com" {
		t.Errorf("env override not applied, got %s", cfg.Server.BaseURL)
	}
}

func TestBytesPerSecond(t *testing.T) {
	a := AudioConfig{SampleRate: 16000, Channels: 1, BitDepth: 16}
	if got := a.BytesPerSecond(); got != 32000 {
		t.Errorf("expected 32000 bytes/s, got %d", got)
	}
}
