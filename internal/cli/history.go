package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewHistoryCmd builds the history command
func NewHistoryCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List past transcriptions on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), deps.Config.Upload.GetTimeoutDuration())
			defer cancel()

			entries, err := deps.Client.History(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No transcriptions yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILENAME\tCREATED\tSIZE\tSUMMARY")
			for _, e := range entries {
				summary := "-"
				if e.HasSummary {
					summary = "yes"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					e.ID, e.Filename, e.CreatedAt, formatSize(e.FileSize), summary)
			}
			return w.Flush()
		},
	}
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
