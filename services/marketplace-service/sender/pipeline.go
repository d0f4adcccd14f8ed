package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/services/common/metrics"
)

// DefaultChannelTimeout bounds a single channel attempt.
const DefaultChannelTimeout = 10 * time.Second

// Pipeline tries its channels in order until one sends. It makes a single
// pass: nothing is queued or retried later.
type Pipeline struct {
	channels []Channel
	timeout  time.Duration
	logger   *zap.Logger
}

func NewPipeline(logger *zap.Logger, timeout time.Duration, channels ...Channel) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultChannelTimeout
	}
	return &Pipeline{channels: channels, timeout: timeout, logger: logger}
}

// Channels lists the configured channel names in order.
func (p *Pipeline) Channels() []string {
	names := make([]string, len(p.channels))
	for i, ch := range p.channels {
		names[i] = ch.Name()
	}
	return names
}

// Send validates msg and walks the channels. A validation failure is the only
// error returned; channel failures are recorded in the attempt and, if all of
// them fail, a simulated result becomes authoritative.
func (p *Pipeline) Send(ctx context.Context, msg Message) (*Attempt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	attempt := &Attempt{To: msg.Recipients(), Subject: msg.Subject}

	for _, ch := range p.channels {
		result := p.try(ctx, ch, msg)
		attempt.Results = append(attempt.Results, result)
		if result.Outcome == OutcomeSent {
			attempt.Results[len(attempt.Results)-1].Authoritative = true
			p.logger.Info("notification sent",
				zap.String("channel", result.Channel),
				zap.String("message_id", result.MessageID),
				zap.Strings("to", attempt.To),
				zap.String("request_id", msg.RequestID),
			)
			return attempt, nil
		}
		p.logger.Warn("notification channel failed",
			zap.String("channel", result.Channel),
			zap.String("error", result.Error),
			zap.Duration("duration", result.Duration),
			zap.String("request_id", msg.RequestID),
		)
	}

	simulated := ChannelResult{
		Channel:       SimulatedChannel,
		Outcome:       OutcomeSimulated,
		MessageID:     "simulated-" + uuid.NewString(),
		Authoritative: true,
	}
	attempt.Results = append(attempt.Results, simulated)
	attempt.Results[len(attempt.Results)-1].Error = attempt.Diagnostics()

	metrics.NotificationChannelAttemptsTotal.WithLabelValues(SimulatedChannel, string(OutcomeSimulated)).Inc()
	metrics.NotificationDegradedTotal.Inc()
	p.logger.Warn("notification degraded: all channels failed",
		zap.Strings("to", attempt.To),
		zap.String("subject", msg.Subject),
		zap.String("diagnostics", attempt.Diagnostics()),
		zap.String("request_id", msg.RequestID),
	)
	return attempt, nil
}

type sendOutcome struct {
	receipt Receipt
	err     error
}

// try runs one channel under the per-channel timeout. A channel that ignores
// its context is abandoned when the timeout fires.
func (p *Pipeline) try(ctx context.Context, ch Channel, msg Message) ChannelResult {
	chCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan sendOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sendOutcome{err: fmt.Errorf("channel panicked: %v", r)}
			}
		}()
		receipt, err := ch.AttemptSend(chCtx, msg)
		done <- sendOutcome{receipt: receipt, err: err}
	}()

	var out sendOutcome
	select {
	case out = <-done:
	case <-chCtx.Done():
		out = sendOutcome{err: fmt.Errorf("channel timed out after %s: %w", p.timeout, chCtx.Err())}
	}

	elapsed := time.Since(start)
	metrics.NotificationChannelDuration.WithLabelValues(ch.Name()).Observe(elapsed.Seconds())

	result := ChannelResult{Channel: ch.Name(), Duration: elapsed}
	if out.err != nil {
		result.Outcome = OutcomeFailed
		result.Error = out.err.Error()
	} else {
		result.Outcome = OutcomeSent
		result.MessageID = out.receipt.MessageID
		result.Response = out.receipt.Response
	}
	metrics.NotificationChannelAttemptsTotal.WithLabelValues(result.Channel, string(result.Outcome)).Inc()
	return result
}
