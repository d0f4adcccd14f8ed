package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/eventhub/backend/pkg/aws"
	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/repository"
	"github.com/eventhub/backend/services/marketplace-service/sender"
)

type ConsultationService interface {
	Schedule(ctx context.Context, requestID uuid.UUID, in *models.ScheduleConsultationInput) (*models.ConsultationCall, error)
	Update(ctx context.Context, id uuid.UUID, in *models.UpdateConsultationInput) (*models.ConsultationCall, error)
	ListForRequest(ctx context.Context, requestID uuid.UUID) ([]models.ConsultationCall, error)
}

type consultationService struct {
	requests      repository.RequestRepository
	consultations repository.ConsultationRepository
	sms           sender.SMSSender
	phoneRegion   string
	metrics       *awspkg.MetricsClient
	logger        *zap.Logger
}

// NewConsultationService builds the scheduling service. sms may be nil, in
// which case no confirmation text is sent.
func NewConsultationService(
	requests repository.RequestRepository,
	consultations repository.ConsultationRepository,
	sms sender.SMSSender,
	phoneRegion string,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
) ConsultationService {
	if phoneRegion == "" {
		phoneRegion = "IN"
	}
	return &consultationService{
		requests:      requests,
		consultations: consultations,
		sms:           sms,
		phoneRegion:   phoneRegion,
		metrics:       metrics,
		logger:        logger,
	}
}

// Schedule books the single active call for a request and advances the
// request to scheduled.
func (s *consultationService) Schedule(ctx context.Context, requestID uuid.UUID, in *models.ScheduleConsultationInput) (*models.ConsultationCall, error) {
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.ContactHandle = strings.TrimSpace(in.ContactHandle)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("request not found")
		}
		return nil, s.internal("failed to load request", err)
	}
	if req.Status.IsTerminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("request is %s", req.Status))
	}

	existing, err := s.consultations.FindActiveByRequest(ctx, requestID)
	switch {
	case err == nil:
		return nil, apperrors.Conflict("an active consultation call already exists for this request (id " + existing.ID.String() + ")")
	case !repository.IsNotFound(err):
		return nil, s.internal("failed to load consultations", err)
	}

	handle, phoneOK := s.normalizeHandle(in.ContactHandle)
	call := &models.ConsultationCall{
		RequestID:     requestID,
		ScheduledAt:   in.ScheduledAt.UTC(),
		ContactEmail:  strings.ToLower(in.ContactEmail),
		ContactHandle: handle,
		Status:        models.CallStatusScheduled,
		Notes:         strings.TrimSpace(in.Notes),
	}
	if err := s.consultations.Create(ctx, call); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("an active consultation call already exists for this request")
		}
		return nil, s.internal("failed to create consultation", err)
	}

	status := DeriveStatus(req.Status, StatusFacts{
		PackageSelected:    req.SelectedPackage != nil,
		ServicesSelected:   len(req.Services()) > 0,
		ActiveConsultation: true,
	})
	if status != req.Status {
		if err := s.requests.UpdateFields(ctx, requestID, map[string]interface{}{"status": status}); err != nil {
			s.logger.Error("failed to advance request status",
				zap.Error(err),
				zap.String("request_id", requestID.String()),
				zap.String("consultation_id", call.ID.String()),
			)
		}
	}

	s.logger.Info("consultation scheduled",
		zap.String("request_id", requestID.String()),
		zap.String("consultation_id", call.ID.String()),
		zap.Time("scheduled_at", call.ScheduledAt),
	)
	s.metrics.RecordCountAsync(awspkg.MetricConsultationsScheduled, map[string]string{"Service": "marketplace-service"})

	if phoneOK {
		s.textConfirmation(ctx, call)
	}
	return call, nil
}

// Update edits an existing call. Completed and cancelled calls are final.
func (s *consultationService) Update(ctx context.Context, id uuid.UUID, in *models.UpdateConsultationInput) (*models.ConsultationCall, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.ScheduledAt == nil && in.Status == nil && in.Notes == nil {
		return nil, apperrors.Validation("", "nothing to update")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperrors.Validation("status", "status must be one of scheduled, completed, cancelled")
	}

	call, err := s.consultations.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("consultation not found")
		}
		return nil, s.internal("failed to load consultation", err)
	}
	if call.Status != models.CallStatusScheduled {
		return nil, apperrors.Conflict(fmt.Sprintf("consultation is %s", call.Status))
	}

	fields := map[string]interface{}{}
	if in.ScheduledAt != nil {
		call.ScheduledAt = in.ScheduledAt.UTC()
		fields["scheduled_at"] = call.ScheduledAt
	}
	if in.Status != nil {
		call.Status = *in.Status
		fields["status"] = call.Status
	}
	if in.Notes != nil {
		call.Notes = strings.TrimSpace(*in.Notes)
		fields["notes"] = call.Notes
	}

	if err := s.consultations.UpdateFields(ctx, id, fields); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("consultation not found")
		}
		return nil, s.internal("failed to update consultation", err)
	}
	return call, nil
}

func (s *consultationService) ListForRequest(ctx context.Context, requestID uuid.UUID) ([]models.ConsultationCall, error) {
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("request not found")
		}
		return nil, s.internal("failed to load request", err)
	}
	calls, err := s.consultations.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, s.internal("failed to list consultations", err)
	}
	return calls, nil
}

// normalizeHandle returns the E.164 form of a phone handle and whether it
// parsed. Unparseable handles are stored as given.
func (s *consultationService) normalizeHandle(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	n, err := sender.NormalizePhone(raw, s.phoneRegion)
	if err != nil {
		s.logger.Debug("contact handle is not a phone number", zap.String("handle", raw), zap.Error(err))
		return raw, false
	}
	return n, true
}

func (s *consultationService) textConfirmation(ctx context.Context, call *models.ConsultationCall) {
	if s.sms == nil {
		return
	}
	body := fmt.Sprintf("Your event planning consultation is booked for %s UTC. Reference %s.",
		call.ScheduledAt.Format("02 Jan 2006 15:04"), call.ID.String()[:8])
	receipt, err := s.sms.SendSMS(ctx, call.ContactHandle, body)
	if err != nil {
		s.logger.Warn("consultation sms failed",
			zap.Error(err),
			zap.String("consultation_id", call.ID.String()),
		)
		return
	}
	s.logger.Info("consultation sms sent",
		zap.String("consultation_id", call.ID.String()),
		zap.String("message_id", receipt.MessageID),
	)
}

func (s *consultationService) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.Internal(err)
}
