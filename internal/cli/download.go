package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewDownloadCmd builds the download command
func NewDownloadCmd(deps *Dependencies) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "download <transcription-id>",
		Short: "Fetch a transcript or summary by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("transcription id must be a number, got %q", args[0])
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), deps.Config.Upload.GetTimeoutDuration())
			defer cancel()

			var text string
			if summary {
				text, err = deps.Client.DownloadSummary(ctx, id)
			} else {
				text, err = deps.Client.DownloadTranscription(ctx, id)
			}
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}

			fmt.Println(text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "Download the summary instead of the transcript")

	return cmd
}
