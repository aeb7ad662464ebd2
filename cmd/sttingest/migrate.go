package main

import (
	"github.com/spf13/cobra"

	"STTIngest/internal/app"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := load()
			if err := app.Migrate(cmd.Context(), cfg, logger); err != nil {
				return err
			}
			logger.Info("schema up to date")
			return nil
		},
	}
}
