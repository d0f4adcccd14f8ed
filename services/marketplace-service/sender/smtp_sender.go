package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender relays through an authenticated SMTP server. Port 465 uses
// implicit TLS; other ports upgrade with STARTTLS when offered.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("MAIL_FROM not set")
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) AttemptSend(ctx context.Context, msg Message) (Receipt, error) {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return Receipt{}, fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return Receipt{}, fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.cfg.Port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return Receipt{}, fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return Receipt{}, fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return Receipt{}, fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range msg.Recipients() {
		if err := client.Rcpt(rcpt); err != nil {
			return Receipt{}, fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host)
	w, err := client.Data()
	if err != nil {
		return Receipt{}, fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(buildMIME(s.cfg.From, messageID, msg, time.Now())); err != nil {
		return Receipt{}, fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return Receipt{}, fmt.Errorf("smtp end DATA: %w", err)
	}
	_ = client.Quit()

	return Receipt{MessageID: messageID, Response: "250 queued"}, nil
}

func (s *SMTPSender) dial(ctx context.Context, addr string) (net.Conn, error) {
	if s.cfg.Port == "465" {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// buildMIME renders the message. With both bodies present it is a
// multipart/alternative with the text part first.
func buildMIME(from, messageID string, msg Message, now time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }

	header("From", from)
	header("To", strings.Join(msg.Recipients(), ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", messageID)
	header("MIME-Version", "1.0")

	switch {
	case msg.HTML != "" && msg.Text != "":
		boundary := "alt-" + strings.ReplaceAll(uuid.NewString(), "-", "")
		header("Content-Type", fmt.Sprintf(`multipart/alternative; boundary="%s"`, boundary))
		b.WriteString("\r\n")
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.Text)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTML)
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	case msg.HTML != "":
		header("Content-Type", "text/html; charset=UTF-8")
		b.WriteString("\r\n" + msg.HTML)
	default:
		header("Content-Type", "text/plain; charset=UTF-8")
		b.WriteString("\r\n" + msg.Text)
	}
	return b.Bytes()
}
