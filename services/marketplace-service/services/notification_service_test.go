package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/sender"
	"github.com/eventhub/backend/services/marketplace-service/services"
)

func TestNotificationService_Send_LogsAttempt(t *testing.T) {
	relay := &fakeChannel{name: "sendgrid", id: "sg-1"}
	repo := &mockNotificationRepo{}
	svc := services.NewNotificationService(repo, sender.NewPipeline(testLogger(), time.Second, relay), nil, testLogger())

	requestID := uuid.New()
	attempt, err := svc.Send(context.Background(), sender.Message{
		To: []string{"ops@example.com"}, Subject: "Hi", Text: "body", RequestID: requestID.String(),
	})
	require.NoError(t, err)
	assert.True(t, attempt.Sent())

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Equal(t, "sendgrid", log.Channel)
	assert.Equal(t, "sent", log.Status)
	assert.Equal(t, "sg-1", log.MessageID)
	require.NotNil(t, log.RequestID)
	assert.Equal(t, requestID, *log.RequestID)
}

func TestNotificationService_Send_InvalidMessage(t *testing.T) {
	relay := &fakeChannel{name: "smtp", id: "x"}
	repo := &mockNotificationRepo{}
	svc := services.NewNotificationService(repo, sender.NewPipeline(testLogger(), time.Second, relay), nil, testLogger())

	_, err := svc.Send(context.Background(), sender.Message{To: []string{"ops@example.com"}, Text: "body"})
	assertKind(t, err, apperrors.KindValidation)
	assert.Empty(t, relay.sent)
	assert.Empty(t, repo.logs)
}

func TestNotificationService_Send_LogFailureIgnored(t *testing.T) {
	relay := &fakeChannel{name: "smtp", err: errors.New("dial tcp: i/o timeout")}
	repo := &mockNotificationRepo{saveErr: errBoom}
	svc := services.NewNotificationService(repo, sender.NewPipeline(testLogger(), time.Second, relay), nil, testLogger())

	attempt, err := svc.Send(context.Background(), sender.Message{To: []string{"ops@example.com"}, Subject: "Hi", Text: "body"})
	require.NoError(t, err)
	assert.True(t, attempt.Degraded())
}

func TestNotificationService_GetLogs(t *testing.T) {
	repo := &mockNotificationRepo{logs: []models.NotificationLog{{ID: 1, Channel: "smtp", Status: "sent"}}}
	svc := services.NewNotificationService(repo, sender.NewPipeline(testLogger(), time.Second), nil, testLogger())

	logs, total, err := svc.GetLogs(context.Background(), models.NotificationFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, logs, 1)
}
