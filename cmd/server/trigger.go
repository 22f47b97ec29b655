package main

import (
	"github.com/spf13/cobra"

	"github.com/KOFI-GYIMAH/gitsync/internal/queue"
	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

// newTriggerCmd asks a running server to start a pass through the trigger
// queue. The server applies the same rejection rules as POST /api/sync.
func newTriggerCmd() *cobra.Command {
	var requestedBy string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Request a sync pass from a running server over RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.RabbitMQURL == "" {
				return errors.New(errors.RefConfig, "Invalid configuration", "RABBITMQ_URL is required to send a trigger request", nil, errors.LevelFatal)
			}

			mq, err := queue.NewRabbitMQ(cmd.Context(), cfg.RabbitMQURL)
			if err != nil {
				return err
			}
			defer mq.Close()

			if err := mq.PublishTriggerRequest(cmd.Context(), requestedBy); err != nil {
				logger.Error("Failed to publish trigger request: %v", err)
				return err
			}

			logger.Info("📨 Trigger request sent to %s", queue.TriggerQueue)
			return nil
		},
	}
	cmd.Flags().StringVar(&requestedBy, "requested-by", "cli", "name recorded on the trigger request")
	return cmd
}
