package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/tomsflightclub/flightclub/internal/pkg/env"
)

// Mailer is the outbound email transport. The digest dispatcher depends on
// this interface so tests can swap in a fake and batch sends can be bounded
// by the caller's context.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends emails via SMTP using env configuration.
type SMTPMailer struct{}

// NewSMTPMailer returns the env-configured SMTP transport.
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{}
}

// Send delivers one message, honoring context cancellation. net/smtp has no
// native context support, so the dial/send runs in a goroutine and the
// context deadline wins the race.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	done := make(chan error, 1)
	go func() {
		done <- SendMail(to, subject, htmlBody)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendMail sends a single HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}
