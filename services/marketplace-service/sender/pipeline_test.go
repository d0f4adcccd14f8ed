package sender_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/marketplace-service/sender"
)

// --- Fake channel ---

type fakeChannel struct {
	name   string
	sendFn func(ctx context.Context, msg sender.Message) (sender.Receipt, error)
	calls  int32
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) AttemptSend(ctx context.Context, msg sender.Message) (sender.Receipt, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.sendFn(ctx, msg)
}

func failing(name, reason string) *fakeChannel {
	return &fakeChannel{name: name, sendFn: func(context.Context, sender.Message) (sender.Receipt, error) {
		return sender.Receipt{}, errors.New(reason)
	}}
}

func succeeding(name, id string) *fakeChannel {
	return &fakeChannel{name: name, sendFn: func(context.Context, sender.Message) (sender.Receipt, error) {
		return sender.Receipt{MessageID: id, Response: "202 Accepted"}, nil
	}}
}

func validMessage() sender.Message {
	return sender.Message{
		To:      []string{"ops@example.com"},
		Subject: "New event planning request",
		HTML:    "<p>hello</p>",
		Text:    "hello",
	}
}

func authoritativeCount(a *sender.Attempt) int {
	n := 0
	for _, r := range a.Results {
		if r.Authoritative {
			n++
		}
	}
	return n
}

// --- Tests ---

func TestPipeline_FirstChannelSends(t *testing.T) {
	relay := succeeding("smtp", "<id-1@mail>")
	function := succeeding("function", "fn-1")
	p := sender.NewPipeline(zap.NewNop(), time.Second, relay, function)

	attempt, err := p.Send(context.Background(), validMessage())
	require.NoError(t, err)

	assert.True(t, attempt.Sent())
	assert.False(t, attempt.Degraded())
	assert.Equal(t, "smtp", attempt.Outcome().Channel)
	assert.Equal(t, "<id-1@mail>", attempt.Outcome().MessageID)
	assert.Len(t, attempt.Results, 1)
	assert.EqualValues(t, 0, function.calls)
}

func TestPipeline_FallsThroughInOrder(t *testing.T) {
	relay := failing("smtp", "connection refused")
	function := failing("function", "502 Bad Gateway")
	platform := succeeding("platform", "sns-123")
	p := sender.NewPipeline(zap.NewNop(), time.Second, relay, function, platform)

	attempt, err := p.Send(context.Background(), validMessage())
	require.NoError(t, err)

	require.Len(t, attempt.Results, 3)
	assert.Equal(t, sender.OutcomeFailed, attempt.Results[0].Outcome)
	assert.Equal(t, "connection refused", attempt.Results[0].Error)
	assert.Equal(t, sender.OutcomeFailed, attempt.Results[1].Outcome)
	assert.Equal(t, sender.OutcomeSent, attempt.Results[2].Outcome)
	assert.Equal(t, "platform", attempt.Outcome().Channel)
	assert.Equal(t, 1, authoritativeCount(attempt))
}

func TestPipeline_AllFail_SimulatedFallback(t *testing.T) {
	p := sender.NewPipeline(zap.NewNop(), time.Second,
		failing("smtp", "auth failed"),
		failing("function", "timeout"),
		failing("platform", "AccessDenied"),
	)

	attempt, err := p.Send(context.Background(), validMessage())
	require.NoError(t, err)

	assert.False(t, attempt.Sent())
	assert.True(t, attempt.Degraded())
	assert.Equal(t, 1, authoritativeCount(attempt))

	out := attempt.Outcome()
	assert.Equal(t, sender.SimulatedChannel, out.Channel)
	assert.Equal(t, sender.OutcomeSimulated, out.Outcome)
	assert.True(t, strings.HasPrefix(out.MessageID, "simulated-"))
	assert.Contains(t, out.Error, "smtp: auth failed")
	assert.Contains(t, out.Error, "platform: AccessDenied")
}

func TestPipeline_NoChannels_IsDegraded(t *testing.T) {
	p := sender.NewPipeline(zap.NewNop(), time.Second)

	attempt, err := p.Send(context.Background(), validMessage())
	require.NoError(t, err)
	assert.True(t, attempt.Degraded())
	assert.Len(t, attempt.Results, 1)
}

func TestPipeline_ValidationFailsBeforeAnyChannel(t *testing.T) {
	relay := succeeding("smtp", "x")
	p := sender.NewPipeline(zap.NewNop(), time.Second, relay)

	cases := map[string]sender.Message{
		"to":      {To: []string{" "}, Subject: "s", Text: "t"},
		"subject": {To: []string{"a@b.com"}, Text: "t"},
		"body":    {To: []string{"a@b.com"}, Subject: "s"},
	}
	for field, msg := range cases {
		attempt, err := p.Send(context.Background(), msg)
		assert.Nil(t, attempt, field)
		assert.True(t, apperrors.Is(err, apperrors.KindValidation), field)
		assert.Equal(t, field, apperrors.From(err).Field)
	}

	_, err := p.Send(context.Background(), sender.Message{To: []string{"not-an-email"}, Subject: "s", Text: "t"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	assert.EqualValues(t, 0, relay.calls)
}

func TestPipeline_ChannelTimeout_IgnoringContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := &fakeChannel{name: "smtp", sendFn: func(context.Context, sender.Message) (sender.Receipt, error) {
		<-release
		return sender.Receipt{MessageID: "late"}, nil
	}}
	p := sender.NewPipeline(zap.NewNop(), 20*time.Millisecond, stuck, succeeding("function", "fn-2"))

	start := time.Now()
	attempt, err := p.Send(context.Background(), validMessage())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, sender.OutcomeFailed, attempt.Results[0].Outcome)
	assert.Contains(t, attempt.Results[0].Error, "timed out")
	assert.Equal(t, "fn-2", attempt.Outcome().MessageID)
}

func TestPipeline_ChannelPanic_IsFailure(t *testing.T) {
	boom := &fakeChannel{name: "smtp", sendFn: func(context.Context, sender.Message) (sender.Receipt, error) {
		panic("nil client")
	}}
	p := sender.NewPipeline(zap.NewNop(), time.Second, boom)

	attempt, err := p.Send(context.Background(), validMessage())
	require.NoError(t, err)
	assert.Contains(t, attempt.Results[0].Error, "panicked")
	assert.True(t, attempt.Degraded())
}

func TestPipeline_Channels(t *testing.T) {
	p := sender.NewPipeline(zap.NewNop(), 0, succeeding("smtp", ""), succeeding("platform", ""))
	assert.Equal(t, []string{"smtp", "platform"}, p.Channels())
}
