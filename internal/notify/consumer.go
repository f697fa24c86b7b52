package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Sender delivers one notification to its recipient.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Consumer drains the email queue and hands each message to the Sender.
// It runs a reconnect loop with exponential backoff and returns only when
// the context is cancelled. A message the sender rejects is nacked without
// requeue so a poison payload cannot wedge the worker.
type Consumer struct {
	url    string
	sender Sender
	logger *slog.Logger
}

func NewConsumer(url string, sender Sender, logger *slog.Logger) *Consumer {
	return &Consumer{url: url, sender: sender, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Error("broker dial failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn); err != nil {
			c.logger.Error("consume loop ended", "error", err)
		}
		conn.Close()
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("set QoS failed", "error", err)
	}

	if _, err := ch.QueueDeclare(emailQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(emailQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.logger.Error("handle message failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	if err := c.sender.Send(ctx, n); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	c.logger.Info("notification delivered", "recipient", n.Recipient, "subject", n.Subject)
	return nil
}
