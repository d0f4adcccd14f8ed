package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/common/logger"
	"github.com/eventhub/backend/services/marketplace-service/middleware"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/services"
)

type ConsultationController struct {
	consultationService services.ConsultationService
	logger              *zap.Logger
}

func NewConsultationController(svc services.ConsultationService, logger *zap.Logger) *ConsultationController {
	return &ConsultationController{consultationService: svc, logger: logger}
}

// Schedule handles POST /api/requests/:id/consultations.
func (cc *ConsultationController) Schedule(c *gin.Context) {
	requestID, ok := parseID(c)
	if !ok {
		return
	}
	var in models.ScheduleConsultationInput
	if !bindJSON(c, &in) {
		return
	}

	call, err := cc.consultationService.Schedule(c.Request.Context(), requestID, &in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusCreated, gin.H{"id": call.ID, "requestId": call.RequestID, "status": call.Status, "scheduledAt": call.ScheduledAt})
}

func (cc *ConsultationController) List(c *gin.Context) {
	requestID, ok := parseID(c)
	if !ok {
		return
	}
	calls, err := cc.consultationService.ListForRequest(c.Request.Context(), requestID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if calls == nil {
		calls = []models.ConsultationCall{}
	}
	apperrors.OK(c, http.StatusOK, calls)
}

// Update handles the admin PATCH /api/consultations/:id.
func (cc *ConsultationController) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in models.UpdateConsultationInput
	if !bindJSON(c, &in) {
		return
	}

	call, err := cc.consultationService.Update(c.Request.Context(), id, &in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	logger.WithRequest(c, cc.logger).Info("consultation updated by operator",
		zap.String("consultation_id", id.String()),
		zap.String("status", string(call.Status)),
		zap.String("operator", middleware.GetUserID(c)),
	)
	apperrors.OK(c, http.StatusOK, call)
}
