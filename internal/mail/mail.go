// Package mail renders the HTML templates used by the auth flows and hands
// the result to an SMTP transport.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"maps"

	gomail "gopkg.in/mail.v2"

	"github.com/iliyamo/finance-control-api/internal/config"
)

// Template names.
const (
	TemplateWelcome         = "welcome"
	TemplatePasswordRecover = "password-recover"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a mail waiting to be rendered and delivered.  Data holds the
// per-message locals; frontend links are merged in at render time.
type Message struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Render executes the message template with Data merged over the frontend
// locals.
func Render(msg Message, frontend config.Frontend) (string, error) {
	locals := frontend.Locals()
	maps.Copy(locals, msg.Data)
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, msg.Template+".html", locals); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	frontend config.Frontend
}

func NewSMTPSender(cfg config.Mail, frontend config.Frontend) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		frontend: frontend,
	}
}

// Send renders msg and dials the relay once per message.  The dialer has no
// context support, so ctx is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := Render(msg, s.frontend)
	if err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender renders and logs messages instead of sending them.  It is used
// when no SMTP host is configured.
type LogSender struct {
	Log      *slog.Logger
	Frontend config.Frontend
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if _, err := Render(msg, s.Frontend); err != nil {
		return err
	}
	s.Log.Info("mail not sent, no smtp host configured",
		slog.String("to", msg.To), slog.String("template", msg.Template))
	return nil
}

// NewSender picks SMTP when a host is configured and LogSender otherwise.
func NewSender(cfg config.Mail, frontend config.Frontend, log *slog.Logger) Sender {
	if cfg.Host == "" {
		return LogSender{Log: log, Frontend: frontend}
	}
	return NewSMTPSender(cfg, frontend)
}
