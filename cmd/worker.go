package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"storefront-svc/kafka"
	"storefront-svc/notify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume order events and send fulfilment emails",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if !cfg.Kafka.Enabled {
			return errors.New("EVENTS_ENABLED must be true to run the worker")
		}

		consumer, err := kafka.InitConsumer(cfg.Kafka, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()

		notifier := notify.NewNotifier(notify.NewMailer(cfg.Mail, logger), cfg.Mail.AdminEmail, logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err = kafka.NewConsumer(consumer, cfg.Kafka.Topic, notifier.HandleOrderEvent, logger).Run(ctx)
		logger.Info("Worker exited", zap.Error(err))
		return err
	},
}
