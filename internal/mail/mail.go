// ABOUTME: Outbound mail for invites and the admin mail test
// ABOUTME: SMTP settings live in the settings store and can change at runtime

package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/burrowvpn/burrow-console/internal/store"
)

// Settings keys for the SMTP relay. An empty host disables outbound mail.
const (
	SettingMailHost     = "mail_host"
	SettingMailPort     = "mail_port"
	SettingMailUsername = "mail_username"
	SettingMailPassword = "mail_password"
	SettingMailFrom     = "mail_from"
)

// Message is one outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through the relay configured in settings. Settings
// are read per send so admin changes apply without a restart.
type SMTPSender struct {
	settings store.SettingStore
	logger   *slog.Logger
}

// NewSMTPSender creates a sender over the settings store.
func NewSMTPSender(settings store.SettingStore) *SMTPSender {
	return &SMTPSender{
		settings: settings,
		logger:   slog.Default().With("component", "mail"),
	}
}

// Send delivers one message. It fails when no relay host is configured.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	values, err := s.settings.GetSettings(ctx, []string{
		SettingMailHost, SettingMailPort, SettingMailUsername,
		SettingMailPassword, SettingMailFrom,
	})
	if err != nil {
		return fmt.Errorf("reading mail settings: %w", err)
	}

	host := values[SettingMailHost]
	if host == "" {
		return fmt.Errorf("no mail relay configured")
	}
	port := values[SettingMailPort]
	if port == "" {
		port = "587"
	}
	from := values[SettingMailFrom]
	if from == "" {
		from = "noreply@" + host
	}

	var auth smtp.Auth
	if values[SettingMailUsername] != "" {
		auth = smtp.PlainAuth("", values[SettingMailUsername], values[SettingMailPassword], host)
	}

	payload := strings.Join([]string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		msg.Body,
	}, "\r\n")

	addr := net.JoinHostPort(host, port)
	if err := smtp.SendMail(addr, auth, from, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}
	s.logger.Info("mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// MockSender records messages instead of delivering them.
type MockSender struct {
	Sent []Message

	// FailWith, when set, is returned by Send.
	FailWith error
}

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Sent = append(m.Sent, msg)
	return nil
}
