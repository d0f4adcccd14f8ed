package sender

import (
	"context"
	"fmt"
	"strings"

	awspkg "github.com/eventhub/backend/pkg/aws"
)

// SNS subjects must be printable ASCII, single line and under 100 characters.
const maxSNSSubject = 99

// SNSSender publishes to the platform mail topic. Its e-mail subscribers get
// the text body, or the HTML when there is no text.
type SNSSender struct {
	publisher awspkg.SNSPublisher
	topicArn  string
}

func NewSNSSender(publisher awspkg.SNSPublisher, topicArn string) (*SNSSender, error) {
	if topicArn == "" {
		return nil, fmt.Errorf("MAIL_SNS_TOPIC_ARN not set")
	}
	return &SNSSender{publisher: publisher, topicArn: topicArn}, nil
}

func (s *SNSSender) Name() string { return "platform" }

func (s *SNSSender) AttemptSend(ctx context.Context, msg Message) (Receipt, error) {
	body := msg.Text
	if body == "" {
		body = msg.HTML
	}
	attrs := map[string]string{"to": strings.Join(msg.Recipients(), ",")}
	if msg.RequestID != "" {
		attrs["request_id"] = msg.RequestID
	}

	id, err := s.publisher.Publish(ctx, s.topicArn, snsSubject(msg.Subject), []byte(body), attrs)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{MessageID: id, Response: "published to " + s.topicArn}, nil
}

// snsSubject maps non-ASCII runes to '?', folds control characters and runs
// of whitespace into single spaces and truncates to the SNS limit.
func snsSubject(subject string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return ' '
		case r > 0x7e:
			return '?'
		}
		return r
	}, subject)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if len(cleaned) > maxSNSSubject {
		cleaned = strings.TrimSpace(cleaned[:maxSNSSubject])
	}
	if cleaned == "" {
		return "Notification"
	}
	return cleaned
}
