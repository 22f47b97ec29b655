package main

import (
	"github.com/spf13/cobra"

	"github.com/KOFI-GYIMAH/gitsync/internal/config"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:   "gitsync",
		Short: "Attribute git commits to work-log posts.",
		Long: `gitsync reads pending posts from the record store, clones each post's
repository once per pass and writes the commits made between consecutive
posts back as a JSON change summary.

Without a subcommand it runs the continuous sync loop and control surface.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE:              serve.RunE,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")

	root.AddCommand(serve, newOnceCmd(), newTriggerCmd())
	return root
}

var cfg *config.Config

// * setup loads configuration once for every subcommand; a bad config is fatal
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadConfiguration()
	if err != nil {
		logger.Error("‼️ Failed to load config: %v", err)
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	if cfg.Debug || verbose {
		logger.SetLevel(logger.LevelDebug)
	}
	return nil
}
