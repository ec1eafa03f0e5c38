// Package queue defines the mail job exchanged over RabbitMQ and the
// consumer that delivers it.
package queue

import (
	"time"

	"github.com/iliyamo/finance-control-api/internal/mail"
)

// MailJob is one queued message.  The broker only carries the template name
// and locals; rendering happens in the consumer.
type MailJob struct {
	Message    mail.Message `json:"message"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}
