package main

import (
	"os"

	"github.com/spf13/cobra"

	"voice-notes-service/internal/config"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice-notes",
		Short: "Voice notes to spreadsheet rows",
		Long: `voice-notes turns short voice memos into structured spreadsheet rows.

A recording is transcribed, classified for the chosen destination tab,
and appended to the spreadsheet. Lead notes are mirrored to the
Alumnos roster.`,
		Version:      version,
		SilenceUsage: true,
	}

	configFile := cmd.PersistentFlags().String("config", "", "YAML config file (overrides CONFIG_FILE)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *configFile != "" {
			return os.Setenv("CONFIG_FILE", *configFile)
		}
		return nil
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newProcessCommand())
	cmd.AddCommand(newDestinationsCommand())
	cmd.AddCommand(newWatchCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}
