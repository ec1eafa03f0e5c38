package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/finance-control-api/internal/config"
	"github.com/iliyamo/finance-control-api/internal/mail"
	"github.com/iliyamo/finance-control-api/internal/queue"
)

// Dispatcher accepts mail for later delivery.  A nil error means the message
// was handed off, not that it reached the recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg mail.Message) error
}

// MailPublisher queues mail jobs on RabbitMQ.  Each call opens its own
// connection and channel; welcome mail volume is low.
type MailPublisher struct {
	url   string
	queue string
	log   *slog.Logger
}

func NewMailPublisher(url, queue string, log *slog.Logger) *MailPublisher {
	return &MailPublisher{url: url, queue: queue, log: log}
}

// Dispatch publishes msg as a persistent JSON job on the default exchange,
// routed by queue name.
func (p *MailPublisher) Dispatch(ctx context.Context, msg mail.Message) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	now := time.Now().UTC()
	body, err := json.Marshal(queue.MailJob{Message: msg, EnqueuedAt: now})
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.Debug("mail job queued", slog.String("to", msg.To), slog.String("template", msg.Template))
	return nil
}

// DirectDispatcher sends mail in-process.
type DirectDispatcher struct {
	Sender mail.Sender
}

func (d DirectDispatcher) Dispatch(ctx context.Context, msg mail.Message) error {
	return d.Sender.Send(ctx, msg)
}

// NewDispatcher queues through RabbitMQ when a broker URL is configured and
// falls back to direct delivery otherwise.
func NewDispatcher(cfg config.AMQP, sender mail.Sender, log *slog.Logger) Dispatcher {
	if cfg.URL == "" {
		return DirectDispatcher{Sender: sender}
	}
	return NewMailPublisher(cfg.URL, cfg.MailQueue, log)
}
