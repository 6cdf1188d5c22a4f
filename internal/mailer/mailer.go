// Package mailer delivers account verification mail.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"myfeed/internal/observability"
)

// Mailer sends transactional mail. Delivery failures are the caller's to
// handle; the account flow treats them as soft failures.
type Mailer interface {
	SendVerification(ctx context.Context, to, username, verifyURL string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func NewSMTPMailer(host, port, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{Host: host, Port: port, User: user, Pass: pass, From: from}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, username, verifyURL string) error {
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Verify your account\r\n\r\nHi %s,\r\n\r\nConfirm your address by opening:\r\n%s\r\n",
		m.From, to, username, verifyURL,
	)

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}

	addr := m.Host + ":" + m.Port
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(body)); err != nil {
		observability.MailDeliveries.WithLabelValues("failure").Inc()
		return fmt.Errorf("send verification mail: %w", err)
	}
	observability.MailDeliveries.WithLabelValues("success").Inc()
	return nil
}

// LogMailer writes the mail to the log instead of sending it. Used when no
// SMTP relay is configured (development, tests).
type LogMailer struct {
	Logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{Logger: logger}
}

func (m *LogMailer) SendVerification(ctx context.Context, to, username, verifyURL string) error {
	m.Logger.InfoContext(ctx, "verification mail (not sent, no SMTP configured)",
		"to", to, "username", username, "verify_url", verifyURL)
	observability.MailDeliveries.WithLabelValues("logged").Inc()
	return nil
}
