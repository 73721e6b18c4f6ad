package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voice-notes-service/internal/app"
)

func newDestinationsCommand() *cobra.Command {
	var create string

	cmd := &cobra.Command{
		Use:   "destinations",
		Short: "List the selectable destination tabs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateSheets(); err != nil {
				return err
			}

			ctx := cmd.Context()
			application := app.New(ctx, cfg)
			defer application.Shutdown()

			if create != "" {
				if err := application.Sheets.CreateDestination(ctx, create); err != nil {
					return fmt.Errorf("create %q: %w", create, err)
				}
			}

			names, err := application.Sheets.ListDestinations(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&create, "create", "", "Create this destination before listing")
	return cmd
}
