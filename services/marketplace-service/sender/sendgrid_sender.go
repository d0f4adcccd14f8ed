package sender

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender relays through the SendGrid v3 mail API.
type SendGridSender struct {
	client   *sendgrid.Client
	fromName string
	fromMail string
}

func NewSendGridSender(apiKey, fromName, fromMail string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY not set")
	}
	if fromMail == "" {
		return nil, fmt.Errorf("MAIL_FROM not set")
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromMail: fromMail,
	}, nil
}

// WithBaseURL points the client at another host, e.g. a local mock.
func (s *SendGridSender) WithBaseURL(host string) *SendGridSender {
	s.client.BaseURL = host + "/v3/mail/send"
	return s
}

func (s *SendGridSender) Name() string { return "sendgrid" }

func (s *SendGridSender) AttemptSend(ctx context.Context, msg Message) (Receipt, error) {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.fromName, s.fromMail))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.Recipients() {
		p.AddTos(mail.NewEmail("", to))
	}
	m.AddPersonalizations(p)

	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return Receipt{}, fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return Receipt{}, fmt.Errorf("sendgrid error %d: %s", resp.StatusCode, resp.Body)
	}

	var messageID string
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	return Receipt{
		MessageID: messageID,
		Response:  fmt.Sprintf("%d %s", resp.StatusCode, resp.Body),
	}, nil
}
