package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/thisisprabha/summary/internal/audio"
	"github.com/thisisprabha/summary/internal/cli"
	"github.com/thisisprabha/summary/internal/config"
	"github.com/thisisprabha/summary/internal/metrics"
	"github.com/thisisprabha/summary/internal/progress"
	"github.com/thisisprabha/summary/internal/session"
	"github.com/thisisprabha/summary/internal/transcription"
	"github.com/thisisprabha/summary/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("RECORDER_CONFIG")
	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Recorder starting",
		slog.String("version", version.String()),
		slog.String("server", cfg.Server.BaseURL),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("log_level", cfg.Logging.Level),
	)

	client, err := transcription.NewClient(transcription.Config{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.Upload.GetTimeoutDuration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create transcription client: %w", err)
	}

	var channel *progress.Channel
	if cfg.Progress.Enabled {
		channel = progress.NewChannel(cfg.Server.BaseURL, progress.Config{
			JitterWindow:     cfg.Progress.JitterWindow,
			HandshakeTimeout: cfg.Progress.GetHandshakeTimeoutDuration(),
		}, logger)
	}

	format := audio.Format{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		BitDepth:   cfg.Audio.BitDepth,
	}
	capture := audio.NewCapture(&audio.FFmpegDevice{}, format, logger)

	appMetrics := metrics.NewMetrics()

	orchestrator := session.NewOrchestrator(capture, client, channel, appMetrics, logger, session.Config{
		TempDir:       cfg.Audio.TempDir,
		UploadTimeout: cfg.Upload.GetTimeoutDuration(),
	})

	deps := &cli.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Orchestrator: orchestrator,
		Client:       client,
		Channel:      channel,
		Metrics:      appMetrics,
	}

	return cli.NewRootCmd(deps).Execute()
}

// initLogger creates the structured logger from configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
