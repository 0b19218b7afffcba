// Package cli defines the recorder's command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thisisprabha/summary/internal/config"
	"github.com/thisisprabha/summary/internal/metrics"
	"github.com/thisisprabha/summary/internal/progress"
	"github.com/thisisprabha/summary/internal/session"
	"github.com/thisisprabha/summary/internal/transcription"
	"github.com/thisisprabha/summary/internal/version"
)

// Dependencies carries the wired application components into the commands
type Dependencies struct {
	Config       *config.Config
	Logger       *slog.Logger
	Orchestrator *session.Orchestrator
	Client       *transcription.Client
	Channel      *progress.Channel
	Metrics      *metrics.Metrics
}

// NewRootCmd builds the command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	var serverURL string

	rootCmd := &cobra.Command{
		Use:   "recorder",
		Short: "Record meetings, transcribe, and summarize",
		Long:  "A client that records meeting audio, uploads it to a transcription server, and fetches an automatic summary.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if serverURL != "" {
				deps.Client.UpdateBaseURL(serverURL)
			}
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate("recorder " + version.String() + "\n")

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Transcription server base URL (overrides config)")

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewHistoryCmd(deps))
	rootCmd.AddCommand(NewDownloadCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
