package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/finance-control-api/internal/mail"
)

// StartMailConsumer connects to the broker, declares the durable queue and
// delivers each job through sender.  It reconnects with exponential backoff
// and returns only once ctx is cancelled.
func StartMailConsumer(ctx context.Context, url, queue string, sender mail.Sender, log *slog.Logger) error {
	log = log.With(slog.String("component", "mail-consumer"), slog.String("queue", queue))
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", slog.Any("err", err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, sender, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", slog.Any("err", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sender mail.Sender, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Warn("set QoS failed", slog.Any("err", err))
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
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
			if err := handleMessage(ctx, d.Body, sender); err != nil {
				log.Error("deliver mail failed", slog.Any("err", err))
				_ = d.Nack(false, false) // no requeue, avoids a hot loop on a bad job
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(ctx context.Context, body []byte, sender mail.Sender) error {
	var job MailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if job.Message.To == "" || job.Message.Template == "" {
		return errors.New("mail job without recipient or template")
	}
	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return sender.Send(sendCtx, job.Message)
}
