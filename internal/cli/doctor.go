package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/thisisprabha/summary/internal/audio"
)

// NewDoctorCmd builds the doctor command, a preflight check for the
// pieces a recording session needs.
func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := true

			if err := audio.CheckFFmpeg(); err != nil {
				check("ffmpeg", false, "not found. Install ffmpeg and ensure it is on PATH")
				ok = false
			} else {
				check("ffmpeg", true, "installed")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if deps.Client.HealthCheck(ctx) {
				check("transcription server", true, deps.Client.BaseURL())
			} else {
				check("transcription server", false, deps.Client.BaseURL()+" is unreachable")
				ok = false
			}

			if err := checkWritable(deps.Config.Audio.TempDir); err != nil {
				check("temp directory", false, fmt.Sprintf("%s: %v", deps.Config.Audio.TempDir, err))
				ok = false
			} else {
				check("temp directory", true, deps.Config.Audio.TempDir)
			}

			if ok {
				fmt.Println("\nAll prerequisites met. Ready to record.")
				return nil
			}
			fmt.Println("\nSome prerequisites are missing.")
			return fmt.Errorf("preflight checks failed")
		},
	}
}

func check(name string, ok bool, detail string) {
	mark := "✓"
	if !ok {
		mark = "✗"
	}
	fmt.Printf("%s %s: %s\n", mark, name, detail)
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, "recorder-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
