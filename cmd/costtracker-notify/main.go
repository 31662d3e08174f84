// Command costtracker-notify consumes the notifications the tracker publishes
// to AMQP and writes them to the log.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"costtracker/internal/amqp"
	"costtracker/internal/cli"
	applog "costtracker/internal/log"
	"costtracker/internal/notify"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentAMQP)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", slog.String(applog.FieldError, err.Error()))
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	sink := notify.NewLog()
	logger.Info("Starting costtracker-notify",
		slog.String("exchange", cfg.AMQPExchange),
		slog.String("queue", cfg.AMQPQueue))

	err = client.Run(ctx, func(ctx context.Context, msg *amqp.NotificationMessage) error {
		sink.Notify(ctx, msg.Notification())
		return nil
	})

	cli.RunCleanup(logger, cfg.ShutdownTimeout, map[string]func(context.Context) error{
		"amqp": func(context.Context) error { return client.Close() },
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", slog.String(applog.FieldError, err.Error()))
		os.Exit(1)
	}
}
