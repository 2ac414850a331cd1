package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"

	"github.com/spec-kit/helpdesk-portal/internal/config"
)

// Message is a plain text notification email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers notification emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Enabled() bool
}

// SMTPMailer sends mail through the configured SMTP relay.
type SMTPMailer struct {
	cfg    config.NotificationConfig
	dialer *mail.Dialer
	logger *zap.Logger
}

// NewSMTPMailer builds a mailer. Without an SMTP host, or with notifications turned off,
// the mailer logs and drops every message.
func NewSMTPMailer(cfg config.NotificationConfig, logger *zap.Logger) *SMTPMailer {
	var dialer *mail.Dialer
	if cfg.Enabled && cfg.SMTPHost != "" {
		dialer = mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, dialer: dialer, logger: logger}
}

// Enabled reports whether messages actually leave the process.
func (m *SMTPMailer) Enabled() bool {
	return m.dialer != nil
}

// Send delivers msg to every recipient in one message.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if !m.Enabled() {
		m.logger.Debug("email disabled, skipping send",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Subject == "" {
		return errors.New("email subject is required")
	}

	email := mail.NewMessage()
	email.SetAddressHeader("From", m.cfg.FromAddress, m.cfg.FromName)
	email.SetHeader("To", msg.To...)
	email.SetHeader("Subject", msg.Subject)
	email.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(email); err != nil {
		return fmt.Errorf("send email %q: %w", msg.Subject, err)
	}
	m.logger.Info("email sent", zap.Int("recipients", len(msg.To)), zap.String("subject", msg.Subject))
	return nil
}
