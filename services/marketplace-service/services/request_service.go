package services

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	awspkg "github.com/eventhub/backend/pkg/aws"
	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/repository"
	"github.com/eventhub/backend/services/marketplace-service/sender"
)

//go:embed templates/*
var templateFS embed.FS

var (
	newRequestHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/new_request.html"))
	newRequestText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/new_request.txt"))
)

const eventDateLayout = "2006-01-02"

type RequestService interface {
	CreateRequest(ctx context.Context, in *models.CreateRequestInput) (*models.CreateRequestResult, error)
	SelectPackage(ctx context.Context, id uuid.UUID, pkg string) (*models.EventPlanningRequest, error)
	SelectServices(ctx context.Context, id uuid.UUID, services []string) (*models.EventPlanningRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*models.EventPlanningRequest, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, in *models.UpdateRequestInput) (*models.EventPlanningRequest, error)
}

type requestService struct {
	requests      repository.RequestRepository
	consultations repository.ConsultationRepository
	users         repository.UserRepository
	events        repository.EventRepository
	notifier      NotificationService
	operatorEmail string
	metrics       *awspkg.MetricsClient
	logger        *zap.Logger
}

func NewRequestService(
	requests repository.RequestRepository,
	consultations repository.ConsultationRepository,
	users repository.UserRepository,
	events repository.EventRepository,
	notifier NotificationService,
	operatorEmail string,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
) RequestService {
	return &requestService{
		requests:      requests,
		consultations: consultations,
		users:         users,
		events:        events,
		notifier:      notifier,
		operatorEmail: operatorEmail,
		metrics:       metrics,
		logger:        logger,
	}
}

// CreateRequest persists a new request as pending and alerts the operator.
// The alert never fails the creation; its outcome is reported in the result.
func (s *requestService) CreateRequest(ctx context.Context, in *models.CreateRequestInput) (*models.CreateRequestResult, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	eventDate, err := time.Parse(eventDateLayout, in.EventDate)
	if err != nil {
		return nil, apperrors.Validation("eventDate", "eventDate must be a date in the form YYYY-MM-DD")
	}
	services, err := cleanServices(in.Services)
	if err != nil {
		return nil, err
	}

	event, err := s.events.FindByID(ctx, in.EventID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("event not found")
		}
		return nil, s.internal("failed to load event", err)
	}

	user, err := s.users.FindOrCreateByEmail(ctx, in.RequesterEmail, strings.TrimSpace(in.RequesterName), strings.TrimSpace(in.RequesterPhone))
	if err != nil {
		return nil, s.internal("failed to resolve requester", err)
	}

	req := &models.EventPlanningRequest{
		UserID:       user.ID,
		EventID:      event.ID,
		PackageID:    in.PackageID,
		PackageLabel: strings.TrimSpace(in.PackageLabel),
		Location:     strings.TrimSpace(in.Location),
		EventDate:    eventDate,
		Budget:       in.Budget,
		GuestCount:   in.GuestCount,
		Notes:        strings.TrimSpace(in.Notes),
		Status:       models.StatusPending,
	}
	if services != nil {
		req.SelectedServices = mustJSON(services)
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, s.internal("failed to create request", err)
	}

	s.logger.Info("event planning request created",
		zap.String("request_id", req.ID.String()),
		zap.Int64("event_id", req.EventID),
		zap.String("user_id", user.ID.String()),
	)
	s.metrics.RecordCountAsync(awspkg.MetricRequestsCreated, map[string]string{"Event": event.Slug})

	result := &models.CreateRequestResult{ID: req.ID, Status: req.Status}
	attempt := s.notifyOperator(ctx, req, event, user)
	if attempt != nil {
		out := attempt.Outcome()
		result.EmailSent = attempt.Sent()
		result.Notification = &models.NotificationSummary{
			Channel:   out.Channel,
			Outcome:   string(out.Outcome),
			MessageID: out.MessageID,
			Degraded:  attempt.Degraded(),
		}
	}
	return result, nil
}

// notifyOperator renders and sends the new-request alert. It returns nil when
// no attempt could be made.
func (s *requestService) notifyOperator(ctx context.Context, req *models.EventPlanningRequest, event *models.Event, user *models.User) *sender.Attempt {
	data := struct {
		ID            string
		EventName     string
		PackageID     int64
		PackageLabel  string
		EventDate     string
		Location      string
		GuestCount    int
		Budget        string
		Services      []string
		Notes         string
		CustomerName  string
		CustomerEmail string
		CustomerPhone string
	}{
		ID:            req.ID.String(),
		EventName:     event.Name,
		PackageID:     req.PackageID,
		PackageLabel:  req.PackageLabel,
		EventDate:     req.EventDate.Format(eventDateLayout),
		Location:      req.Location,
		GuestCount:    req.GuestCount,
		Budget:        fmt.Sprintf("%.2f", req.Budget),
		Services:      req.Services(),
		Notes:         req.Notes,
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
		CustomerPhone: user.Phone,
	}

	var html, text bytes.Buffer
	if err := newRequestHTML.Execute(&html, data); err != nil {
		s.logger.Error("template render failed", zap.Error(err), zap.String("request_id", data.ID))
		return nil
	}
	if err := newRequestText.Execute(&text, data); err != nil {
		s.logger.Error("template render failed", zap.Error(err), zap.String("request_id", data.ID))
		return nil
	}

	attempt, err := s.notifier.Send(ctx, sender.Message{
		To:        []string{s.operatorEmail},
		Subject:   fmt.Sprintf("New %s request in %s", event.Name, req.Location),
		HTML:      html.String(),
		Text:      text.String(),
		RequestID: data.ID,
	})
	if err != nil {
		s.logger.Error("operator notification rejected", zap.Error(err), zap.String("request_id", data.ID))
		return nil
	}
	return attempt
}

func (s *requestService) SelectPackage(ctx context.Context, id uuid.UUID, pkg string) (*models.EventPlanningRequest, error) {
	pkg = strings.ToLower(strings.TrimSpace(pkg))
	if !models.IsValidPackage(pkg) {
		return nil, apperrors.Validation("selectedPackage",
			"selectedPackage must be one of "+strings.Join(models.ValidPackages, ", "))
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	active, err := s.hasActiveConsultation(ctx, id)
	if err != nil {
		return nil, err
	}

	status := DeriveStatus(req.Status, StatusFacts{
		PackageSelected:    true,
		ServicesSelected:   len(req.Services()) > 0,
		ActiveConsultation: active,
	})
	fields := map[string]interface{}{"selected_package": pkg, "status": status}
	if err := s.update(ctx, id, fields); err != nil {
		return nil, err
	}

	req.SelectedPackage = &pkg
	req.Status = status
	return req, nil
}

// SelectServices replaces the selected services. A nil slice means the client
// did not send an array.
func (s *requestService) SelectServices(ctx context.Context, id uuid.UUID, services []string) (*models.EventPlanningRequest, error) {
	if services == nil {
		return nil, apperrors.Validation("services", "services must be an array of strings")
	}
	services, err := cleanServices(services)
	if err != nil {
		return nil, err
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	active, err := s.hasActiveConsultation(ctx, id)
	if err != nil {
		return nil, err
	}

	status := DeriveStatus(req.Status, StatusFacts{
		PackageSelected:    req.SelectedPackage != nil,
		ServicesSelected:   len(services) > 0,
		ActiveConsultation: active,
	})
	encoded := mustJSON(services)
	if err := s.update(ctx, id, map[string]interface{}{"selected_services": encoded, "status": status}); err != nil {
		return nil, err
	}

	req.SelectedServices = encoded
	req.Status = status
	return req, nil
}

func (s *requestService) GetRequest(ctx context.Context, id uuid.UUID) (*models.EventPlanningRequest, error) {
	req, err := s.requests.FindWithDetails(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("request not found")
		}
		return nil, s.internal("failed to load request", err)
	}
	return req, nil
}

// UpdateRequest applies an operator edit. Status changes must move forward
// or cancel a request that is still open.
func (s *requestService) UpdateRequest(ctx context.Context, id uuid.UUID, in *models.UpdateRequestInput) (*models.EventPlanningRequest, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Status == nil && in.Notes == nil && in.SelectedPackage == nil {
		return nil, apperrors.Validation("", "nothing to update")
	}

	fields := map[string]interface{}{}
	if in.SelectedPackage != nil {
		pkg := strings.ToLower(strings.TrimSpace(*in.SelectedPackage))
		if !models.IsValidPackage(pkg) {
			return nil, apperrors.Validation("selectedPackage",
				"selectedPackage must be one of "+strings.Join(models.ValidPackages, ", "))
		}
		fields["selected_package"] = pkg
	}
	if in.Notes != nil {
		fields["notes"] = strings.TrimSpace(*in.Notes)
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		if !CanTransition(req.Status, *in.Status) {
			return nil, apperrors.Validation("status",
				fmt.Sprintf("cannot move request from %s to %s", req.Status, *in.Status))
		}
		fields["status"] = *in.Status
	} else if pkg, ok := fields["selected_package"].(string); ok && req.SelectedPackage == nil {
		active, err := s.hasActiveConsultation(ctx, id)
		if err != nil {
			return nil, err
		}
		fields["status"] = DeriveStatus(req.Status, StatusFacts{
			PackageSelected:    pkg != "",
			ServicesSelected:   len(req.Services()) > 0,
			ActiveConsultation: active,
		})
	}

	if err := s.update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.GetRequest(ctx, id)
}

func (s *requestService) load(ctx context.Context, id uuid.UUID) (*models.EventPlanningRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("request not found")
		}
		return nil, s.internal("failed to load request", err)
	}
	return req, nil
}

func (s *requestService) hasActiveConsultation(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.consultations.FindActiveByRequest(ctx, id)
	if err == nil {
		return true, nil
	}
	if repository.IsNotFound(err) {
		return false, nil
	}
	return false, s.internal("failed to load consultations", err)
}

func (s *requestService) update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if err := s.requests.UpdateFields(ctx, id, fields); err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NotFound("request not found")
		}
		return s.internal("failed to update request", err)
	}
	return nil
}

func (s *requestService) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.Internal(err)
}

// cleanServices trims entries and rejects blanks, keeping the given order.
func cleanServices(in []string) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, 0, len(in))
	for _, svc := range in {
		svc = strings.TrimSpace(svc)
		if svc == "" {
			return nil, apperrors.Validation("services", "services must not contain blank entries")
		}
		out = append(out, svc)
	}
	return out, nil
}

func mustJSON(v []string) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}
