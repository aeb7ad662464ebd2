package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"STTIngest/internal/app"
)

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish [content-id]",
		Short: "Publish an archived content item and link it to its coverage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := load()
			ctx := cmd.Context()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			item, err := application.Publish(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s assignment=%q\n", item.ID, item.AssignmentID)
			return nil
		},
	}
}
