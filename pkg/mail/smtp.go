package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/taskforge/taskforge/pkg/config"
)

// SMTPMailer sends mail through a configured SMTP relay
type SMTPMailer struct {
	host       string
	addr       string
	auth       smtp.Auth
	sender     string
	requireTLS bool
}

// NewSMTPMailer creates a mailer from process configuration
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		host:       cfg.Host,
		addr:       net.JoinHostPort(cfg.Host, cfg.Port),
		auth:       auth,
		sender:     cfg.Sender,
		requireTLS: cfg.UseTLS,
	}
}

// Send delivers one message. The context deadline is honored for the dial;
// the SMTP session itself runs synchronously. With UseTLS set, delivery is
// refused when the relay does not offer STARTTLS, so credentials and codes
// never cross the wire in the clear.
func (m *SMTPMailer) Send(ctx context.Context, recipient, subject, body string) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	} else if m.requireTLS {
		return fmt.Errorf("smtp relay %s does not offer STARTTLS", m.addr)
	}

	if m.auth != nil {
		if err := client.Auth(m.auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(m.sender); err != nil {
		return fmt.Errorf("smtp MAIL failed: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("smtp RCPT failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(buildMessage(m.sender, recipient, subject, body)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp delivery to %s failed: %w", recipient, err)
	}

	return client.Quit()
}

func buildMessage(sender, recipient, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sender)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
