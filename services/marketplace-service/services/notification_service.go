package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/eventhub/backend/pkg/aws"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/repository"
	"github.com/eventhub/backend/services/marketplace-service/sender"
)

// Dispatcher runs a message through the delivery channels.
type Dispatcher interface {
	Send(ctx context.Context, msg sender.Message) (*sender.Attempt, error)
}

type NotificationService interface {
	Send(ctx context.Context, msg sender.Message) (*sender.Attempt, error)
	GetLogs(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationLog, int64, error)
}

type notificationService struct {
	repo       repository.NotificationRepository
	dispatcher Dispatcher
	metrics    *awspkg.MetricsClient
	logger     *zap.Logger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	dispatcher Dispatcher,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		repo:       repo,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Send dispatches msg and records an audit row. Only a malformed message is
// an error; degraded delivery is reported through the attempt.
func (s *notificationService) Send(ctx context.Context, msg sender.Message) (*sender.Attempt, error) {
	attempt, err := s.dispatcher.Send(ctx, msg)
	if err != nil {
		return nil, err
	}

	outcome := attempt.Outcome()
	if attempt.Degraded() {
		s.metrics.RecordCountAsync(awspkg.MetricNotificationsDegraded, map[string]string{"Service": "marketplace-service"})
	} else {
		s.metrics.RecordCountAsync(awspkg.MetricNotificationsSent, map[string]string{"Channel": outcome.Channel})
	}

	entry := &models.NotificationLog{
		Recipient: strings.Join(attempt.To, ","),
		Subject:   attempt.Subject,
		Channel:   outcome.Channel,
		Status:    string(outcome.Outcome),
		MessageID: outcome.MessageID,
		Error:     attempt.Diagnostics(),
	}
	if id, err := uuid.Parse(msg.RequestID); err == nil {
		entry.RequestID = &id
	}
	if err := s.repo.SaveLog(ctx, entry); err != nil {
		s.logger.Error("failed to save notification log",
			zap.Error(err),
			zap.String("channel", outcome.Channel),
			zap.String("message_id", outcome.MessageID),
		)
	}

	return attempt, nil
}

func (s *notificationService) GetLogs(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationLog, int64, error) {
	return s.repo.GetLogs(ctx, filter)
}
