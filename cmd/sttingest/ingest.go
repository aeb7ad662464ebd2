package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"STTIngest/internal/app"
	"STTIngest/internal/usecase"
)

func ingestCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest feed files, or the pending files of the provider directory",
		Long: `Ingest STT XML payloads for one configured provider.

With file arguments every file is parsed with the provider's feed parser.
Without arguments the provider directory is read and each XML file ingested once.

Examples:
  sttingest ingest --provider stt-planning planning_584717.xml
  sttingest ingest --provider stt-news`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := load()
			ctx := cmd.Context()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			var summary usecase.Summary
			if len(args) > 0 {
				summary, err = application.IngestFiles(ctx, providerID, args)
			} else {
				summary, err = application.IngestProvider(ctx, providerID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "contents=%d events=%d plannings=%d deliveries=%d retracted=%d\n",
				summary.Contents, summary.Events, summary.Plannings, summary.Deliveries, summary.Retracted)
			return err
		},
	}

	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "ingest provider id from the configuration")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}
