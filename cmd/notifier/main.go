package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/movieflex/movieflex/internal/config"
	"github.com/movieflex/movieflex/internal/notify"
)

// Email worker. Consumes paid-ticket notifications from RabbitMQ and
// sends them through MailerSend.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Mail.APIKey == "" {
		logger.Error("missing MAILERSEND_API_KEY")
		os.Exit(1)
	}

	sender := notify.NewMailerSender(cfg.Mail.APIKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	consumer := notify.NewConsumer(cfg.AMQP.URL, sender, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("notifier started", "amqp", cfg.AMQP.URL)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("notifier finished with error", "error", err)
		os.Exit(1)
	}
}
