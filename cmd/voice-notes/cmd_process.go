package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"voice-notes-service/internal/app"
	"voice-notes-service/internal/service/pipeline"
)

func newProcessCommand() *cobra.Command {
	var (
		file        string
		destination string
		duration    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one recording through the pipeline",
		Long: `Run one recording through the pipeline and print the outcome as JSON.

The file is checked against the recording limits, transcribed,
classified for the destination and appended to the spreadsheet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read recording: %w", err)
			}

			ctx := cmd.Context()
			application := app.New(ctx, cfg)
			defer application.Shutdown()

			rec, err := application.Recordings.Accept(data, mime.TypeByExtension(filepath.Ext(file)), duration)
			if err != nil {
				return err
			}

			res, err := application.Processor.Process(ctx, pipeline.Request{
				RecordingID: rec.ID,
				Audio:       rec.Audio,
				Destination: destination,
				Duration:    rec.Duration,
				CapturedAt:  rec.CreatedAt,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the recorded audio file")
	cmd.Flags().StringVarP(&destination, "destination", "d", "General", "Destination tab")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Recording length (e.g. 42s)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
