package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

func newOnceCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single sync pass and write its result to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.worker.RunPass(cmd.Context())
			if err != nil {
				logger.Error("Sync pass failed: %v", err)
				return err
			}

			body, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return err
			}

			logger.Info("💾 Results saved to %s", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "posts_data.json", "file to write the pass result to")
	return cmd
}
