package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Audio    AudioConfig    `yaml:"audio"`
	Upload   UploadConfig   `yaml:"upload"`
	Progress ProgressConfig `yaml:"progress"`
	Diag     DiagConfig     `yaml:"diag"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains the remote transcription server endpoint
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
}

// AudioConfig contains audio capture format parameters.
// Defaults are tuned for speech transcription fidelity (Whisper-style models).
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"` // Hz
	Channels   int    `yaml:"channels"`
	BitDepth   int    `yaml:"bit_depth"`
	TempDir    string `yaml:"temp_dir"` // directory for in-flight recording artifacts
}

// UploadConfig contains upload/summary request parameters
type UploadConfig struct {
	Timeout int `yaml:"timeout"` // seconds
}

// ProgressConfig contains the optional streaming-progress channel parameters
type ProgressConfig struct {
	Enabled          bool `yaml:"enabled"`
	JitterWindow     int  `yaml:"jitter_window"`     // max buffered out-of-order transcript chunks
	HandshakeTimeout int  `yaml:"handshake_timeout"` // seconds
}

// DiagConfig contains the local diagnostics HTTP endpoint configuration
type DiagConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:9000",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			BitDepth:   16,
			TempDir:    os.TempDir(),
		},
		Upload: UploadConfig{
			Timeout: 30,
		},
		Progress: ProgressConfig{
			Enabled:          false,
			JitterWindow:     8,
			HandshakeTimeout: 10,
		},
		Diag: DiagConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file, falling back to defaults
// when the file does not exist. Environment overrides are applied last so
// the server URL can be changed without editing the file.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No file is fine, defaults apply.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("RECORDER_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("RECORDER_TEMP_DIR"); v != "" {
		c.Audio.TempDir = v
	}
}

// DefaultPath returns the conventional location of the config file
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "recorder", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "recorder", "config.yaml")
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Upload.Validate(); err != nil {
		return fmt.Errorf("upload config: %w", err)
	}

	if err := c.Progress.Validate(); err != nil {
		return fmt.Errorf("progress config: %w", err)
	}

	if err := c.Diag.Validate(); err != nil {
		return fmt.Errorf("diag config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates the server configuration
func (s *ServerConfig) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url is not a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("base_url must include a host")
	}

	return nil
}

// Validate validates the audio configuration
func (a *AudioConfig) Validate() error {
	validRates := map[int]bool{8000: true, 16000: true, 22050: true, 44100: true, 48000: true}
	if !validRates[a.SampleRate] {
		return fmt.Errorf("sample_rate must be one of [8000, 16000, 22050, 44100, 48000], got %d", a.SampleRate)
	}

	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.TempDir == "" {
		return fmt.Errorf("temp_dir cannot be empty")
	}

	return nil
}

// Validate validates the upload configuration
func (u *UploadConfig) Validate() error {
	if u.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", u.Timeout)
	}

	return nil
}

// Validate validates the progress channel configuration
func (p *ProgressConfig) Validate() error {
	if p.JitterWindow < 1 {
		return fmt.Errorf("jitter_window must be at least 1, got %d", p.JitterWindow)
	}

	if p.HandshakeTimeout < 1 {
		return fmt.Errorf("handshake_timeout must be at least 1 second, got %d", p.HandshakeTimeout)
	}

	return nil
}

// Validate validates the diagnostics endpoint configuration
func (d *DiagConfig) Validate() error {
	if d.Enabled {
		if d.Port < 1 || d.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", d.Port)
		}

		if d.Address == "" {
			return fmt.Errorf("address cannot be empty when diag is enabled")
		}
	}

	return nil
}

// Validate validates the logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the upload timeout as a time.Duration
func (u *UploadConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(u.Timeout) * time.Second
}

// GetHandshakeTimeoutDuration returns the websocket handshake timeout as a time.Duration
func (p *ProgressConfig) GetHandshakeTimeoutDuration() time.Duration {
	return time.Duration(p.HandshakeTimeout) * time.Second
}

// BytesPerSecond returns the raw PCM data rate for the configured format
func (a *AudioConfig) BytesPerSecond() int {
	return a.SampleRate * a.Channels * a.BitDepth / 8
}
