package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const emailQueue = "tickets.paid.email"

// AMQPPublisher dispatches notifications by publishing them to a durable
// RabbitMQ queue, from which the notifier worker delivers the email.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(emailQueue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	p.conn = conn
	p.ch = ch

	return ch, nil
}

// Dispatch publishes the notification as a persistent message. The
// connection is re-established lazily after broker restarts.
func (p *AMQPPublisher) Dispatch(ctx context.Context, n Notification) error {
	const op = "notify.AMQPPublisher.Dispatch"

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", emailQueue, false, false, pub); err != nil {
		// drop the broken channel so the next dispatch redials
		p.ch = nil
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
