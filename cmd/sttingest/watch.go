package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"STTIngest/internal/app"
)

func watchCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll provider directories on the configured cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := load()
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Watch(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}
