package testutil

import (
	"context"
	"sync"

	"github.com/iliyamo/finance-control-api/internal/mail"
)

// MailBox records messages instead of sending them.  It satisfies both
// mail.Sender and service.Dispatcher.
type MailBox struct {
	mu   sync.Mutex
	msgs []mail.Message
	// Delivered receives every recorded message when non-nil.
	Delivered chan mail.Message
}

func (b *MailBox) Send(_ context.Context, msg mail.Message) error {
	b.mu.Lock()
	b.msgs = append(b.msgs, msg)
	ch := b.Delivered
	b.mu.Unlock()
	if ch != nil {
		ch <- msg
	}
	return nil
}

func (b *MailBox) Dispatch(ctx context.Context, msg mail.Message) error { return b.Send(ctx, msg) }

// Messages returns a copy of everything recorded so far.
func (b *MailBox) Messages() []mail.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]mail.Message(nil), b.msgs...)
}
