package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"STTIngest/internal/config"
	"STTIngest/internal/logging"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "sttingest",
		Short:         "Ingest STT news, events and planning feeds and link coverages to content",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.Load().String())
			return err
		},
	}
}

func load() (config.Config, *slog.Logger) {
	cfg := config.Load()
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format)
}
