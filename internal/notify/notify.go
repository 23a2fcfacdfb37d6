// Package notify delivers alert emails.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

// Notifier sends one HTML message to every recipient. Implementations must
// not retry; callers record the outcome as-is.
type Notifier interface {
	SendAlert(ctx context.Context, recipients []string, subject, bodyHTML string) error
}

var (
	ErrNoRecipients  = errors.New("notify: no recipients")
	ErrNotConfigured = errors.New("notify: smtp is not configured")
)

// SMTPConfig holds the relay settings for SMTPNotifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Sender   string
	Password string
}

func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Sender != "" && c.Password != ""
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends through an authenticated SMTP relay.
type SMTPNotifier struct {
	sender string
	dialer dialer
	logger *slog.Logger
}

func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		sender: cfg.Sender,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Sender, cfg.Password),
		logger: logger,
	}
}

func (n *SMTPNotifier) SendAlert(ctx context.Context, recipients []string, subject, bodyHTML string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.sender)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", bodyHTML)

	// DialAndSend has no context, so cancellation is honoured by abandoning the wait.
	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			n.logger.Error("smtp delivery failed", "recipients", strings.Join(recipients, ","), "error", err)
			return err
		}
		n.logger.Info("alert email sent", "recipients", strings.Join(recipients, ","), "subject", subject)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier writes alerts to the log instead of sending them. It is used
// when no SMTP credentials are configured, and always reports
// ErrNotConfigured so nothing is ever counted as delivered.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendAlert(_ context.Context, recipients []string, subject, _ string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	n.logger.Warn("alert email not sent, smtp is not configured",
		"recipients", strings.Join(recipients, ","),
		"subject", subject,
	)
	return ErrNotConfigured
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, recipients []string, subject, bodyHTML string) error

func (f Func) SendAlert(ctx context.Context, recipients []string, subject, bodyHTML string) error {
	return f(ctx, recipients, subject, bodyHTML)
}
