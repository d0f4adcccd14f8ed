package sender

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/eventhub/backend/services/common/errors"
)

// Message is one e-mail notification.
type Message struct {
	To        []string
	Subject   string
	HTML      string
	Text      string
	RequestID string
}

// Validate checks the message before any channel is tried.
func (m Message) Validate() error {
	recipients := m.Recipients()
	if len(recipients) == 0 {
		return apperrors.Validation("to", "at least one recipient is required")
	}
	for _, r := range recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return apperrors.Validation("to", fmt.Sprintf("invalid recipient %q", r))
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return apperrors.Validation("subject", "subject is required")
	}
	if strings.TrimSpace(m.HTML) == "" && strings.TrimSpace(m.Text) == "" {
		return apperrors.Validation("body", "html or text body is required")
	}
	return nil
}

// Recipients returns the trimmed, non-blank addresses of To.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To))
	for _, to := range m.To {
		if to = strings.TrimSpace(to); to != "" {
			out = append(out, to)
		}
	}
	return out
}

// Receipt is what a channel reports on success.
type Receipt struct {
	MessageID string
	Response  string
}

// Channel is one way of getting a message out. AttemptSend returns an error
// for any failure; the pipeline then moves to the next channel.
type Channel interface {
	Name() string
	AttemptSend(ctx context.Context, msg Message) (Receipt, error)
}

type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeFailed    Outcome = "failed"
	OutcomeSimulated Outcome = "simulated"
)

// SimulatedChannel names the synthetic terminal result.
const SimulatedChannel = "simulated"

type ChannelResult struct {
	Channel       string        `json:"channel"`
	Outcome       Outcome       `json:"outcome"`
	MessageID     string        `json:"messageId,omitempty"`
	Response      string        `json:"providerResponse,omitempty"`
	Error         string        `json:"message,omitempty"`
	Duration      time.Duration `json:"-"`
	Authoritative bool          `json:"authoritative"`
}

// Attempt records one pass through the pipeline. Exactly one result is
// authoritative: the first sent one, or the simulated fallback.
type Attempt struct {
	To      []string        `json:"to"`
	Subject string          `json:"subject"`
	Results []ChannelResult `json:"results"`
}

// Outcome returns the authoritative result.
func (a *Attempt) Outcome() ChannelResult {
	for _, r := range a.Results {
		if r.Authoritative {
			return r
		}
	}
	return ChannelResult{}
}

// Sent reports whether a real channel delivered the message.
func (a *Attempt) Sent() bool {
	return a.Outcome().Outcome == OutcomeSent
}

// Degraded reports that every real channel failed.
func (a *Attempt) Degraded() bool {
	return a.Outcome().Outcome == OutcomeSimulated
}

// Diagnostics joins the failure messages of the real channels.
func (a *Attempt) Diagnostics() string {
	var parts []string
	for _, r := range a.Results {
		if r.Outcome == OutcomeFailed {
			parts = append(parts, r.Channel+": "+r.Error)
		}
	}
	return strings.Join(parts, "; ")
}
