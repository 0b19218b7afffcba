package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thisisprabha/summary/internal/config"
	"github.com/thisisprabha/summary/internal/diag"
	"github.com/thisisprabha/summary/internal/progress"
	"github.com/thisisprabha/summary/internal/session"
)

// NewRecordCmd builds the record command. It records until interrupted,
// then uploads and waits for the transcript and summary.
func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var diagEnabled bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a meeting and transcribe it",
		Long:  "Start recording from the microphone. Press Ctrl+C to stop and upload; press Ctrl+C again during processing to cancel.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(deps, diagEnabled || deps.Config.Diag.Enabled)
		},
	}

	cmd.Flags().BoolVar(&diagEnabled, "diag", false, "Serve diagnostics HTTP endpoints while recording")

	return cmd
}

func runRecord(deps *Dependencies, diagEnabled bool) error {
	if diagEnabled {
		server := diag.NewServer(deps.Config.Diag, deps.Logger, deps.Config,
			deps.Orchestrator, deps.Client, deps.Metrics)
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start diagnostics server: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Stop(ctx)
		}()
	}

	reporter := &consoleReporter{}
	deps.Orchestrator.AddObserver(reporter)

	if err := deps.Orchestrator.Start(); err != nil {
		return err
	}

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	<-signals
	fmt.Println()

	if err := deps.Orchestrator.Stop(); err != nil {
		return err
	}

	// A second interrupt during processing abandons the session.
	select {
	case <-deps.Orchestrator.Done():
	case <-signals:
		deps.Orchestrator.Cancel()
		<-deps.Orchestrator.Done()
	}

	snap := deps.Orchestrator.Snapshot()
	switch snap.State {
	case session.StateComplete:
		printResult(snap)
		return nil
	case session.StateCancelled:
		fmt.Println("Recording cancelled.")
		return nil
	case session.StateErrored:
		return fmt.Errorf("session failed: %s", reporter.lastFailure())
	default:
		return fmt.Errorf("session ended in unexpected state %s", snap.State)
	}
}

func printResult(snap session.Snapshot) {
	if snap.Transcription != nil {
		fmt.Println("Transcript:")
		fmt.Println(snap.Transcription.Transcription)
		if snap.Transcription.DownloadURL != "" {
			fmt.Printf("\nDownload: %s\n", snap.Transcription.DownloadURL)
		}
	}
	if snap.Summary != "" {
		fmt.Println("\nSummary:")
		fmt.Println(snap.Summary)
	}
}

// consoleReporter renders lifecycle callbacks on stdout
type consoleReporter struct {
	failure *session.Failure
}

func (r *consoleReporter) RecordingStateChanged(recording bool) {
	if recording {
		fmt.Println("Recording... press Ctrl+C to stop.")
	}
}

func (r *consoleReporter) ProcessingStateChanged(processing bool) {
	if processing {
		fmt.Println("Uploading and transcribing...")
	}
}

func (r *consoleReporter) SummaryReceived(text string) {
	// Terminal output happens once at the end; interim transcripts are
	// surfaced through ProgressUpdated.
}

func (r *consoleReporter) ErrorOccurred(failure session.Failure) {
	if failure.Kind == session.FailureSummary {
		fmt.Printf("Warning: %s\n", failure.Message)
		return
	}
	r.failure = &failure
}

func (r *consoleReporter) ProgressUpdated(event progress.Event) {
	if event.Chunk != nil {
		fmt.Print(event.Chunk.Text, " ")
		return
	}
	if event.Message != "" {
		fmt.Printf("[%s] %s\n", event.Stage, event.Message)
	}
}

func (r *consoleReporter) lastFailure() string {
	if r.failure == nil {
		return "unknown error"
	}
	return r.failure.Message
}

// LoadConfig resolves the config path and reads the configuration
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}
