package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// errSMTPServerRequired is returned when no server is configured.
var errSMTPServerRequired = errors.New("smtp server must be provided")

// SMTP sends notifications as plain-text e-mail.
type SMTP struct {
	// cfg holds the relay settings.
	cfg config.SMTPNotify
}

// NewSMTP creates an SMTP notifier from settings.
func NewSMTP(cfg config.SMTPNotify) (*SMTP, error) {
	if cfg.Server == "" {
		return nil, errSMTPServerRequired
	}

	if cfg.Port <= 0 {
		cfg.Port = config.DefaultSMTPPort
	}

	return &SMTP{cfg: cfg}, nil
}

// Name returns the transport name.
func (s *SMTP) Name() string { return "smtp" }

// Notify dials the relay, upgrades to TLS when offered and sends the message.
// The context deadline bounds the whole SMTP conversation.
func (s *SMTP) Notify(ctx context.Context, msg door.Message) error {
	address := net.JoinHostPort(s.cfg.Server, strconv.Itoa(s.cfg.Port))

	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Server)
	if err != nil {
		_ = conn.Close()

		return fmt.Errorf("smtp handshake: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err = client.StartTLS(&tls.Config{ServerName: s.cfg.Server, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Server)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err = s.send(client, msg); err != nil {
		return err
	}

	if err = client.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", err)
	}

	return nil
}

// send runs the MAIL, RCPT and DATA commands.
func (s *SMTP) send(client *smtp.Client, msg door.Message) error {
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}

	for _, to := range s.cfg.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	if _, err = w.Write(composeMail(s.cfg.From, s.cfg.To, msg)); err != nil {
		_ = w.Close()

		return fmt.Errorf("write message: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	return nil
}

// composeMail renders a minimal RFC 5322 plain-text message.
func composeMail(from string, to []string, msg door.Message) []byte {
	timestamp := msg.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var b strings.Builder

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + timestamp.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")

	return []byte(b.String())
}
