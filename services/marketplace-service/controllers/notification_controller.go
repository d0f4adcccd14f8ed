package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/common/logger"
	"github.com/eventhub/backend/services/marketplace-service/middleware"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/sender"
	"github.com/eventhub/backend/services/marketplace-service/services"
)

type NotificationController struct {
	notificationService services.NotificationService
	logger              *zap.Logger
}

func NewNotificationController(svc services.NotificationService, logger *zap.Logger) *NotificationController {
	return &NotificationController{notificationService: svc, logger: logger}
}

const (
	maxPageSize     = 100
	defaultPage     = 1
	defaultPageSize = 20
)

func parsePaginationParams(ctx *gin.Context) (int, int) {
	page := defaultPage
	pageSize := defaultPageSize

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("page_size", "20")); err == nil && l > 0 {
		pageSize = l
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}
	return page, pageSize
}

// SendNotification handles the admin POST /api/notifications/send. Degraded
// delivery is a 200 with the simulated outcome in the body.
func (nc *NotificationController) SendNotification(ctx *gin.Context) {
	var in models.SendNotificationInput
	if !bindJSON(ctx, &in) {
		return
	}

	attempt, err := nc.notificationService.Send(ctx.Request.Context(), sender.Message{
		To:      in.To,
		Subject: in.Subject,
		HTML:    in.HTML,
		Text:    in.Text,
	})
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	outcome := attempt.Outcome()
	logger.WithRequest(ctx, nc.logger).Info("manual notification dispatched",
		zap.String("channel", outcome.Channel),
		zap.String("outcome", string(outcome.Outcome)),
		zap.String("requested_by", middleware.GetUserID(ctx)),
	)
	apperrors.OK(ctx, http.StatusOK, gin.H{
		"sent":      attempt.Sent(),
		"degraded":  attempt.Degraded(),
		"channel":   outcome.Channel,
		"messageId": outcome.MessageID,
		"attempt":   attempt,
	})
}

func (nc *NotificationController) GetNotificationLogs(ctx *gin.Context) {
	var requestID *uuid.UUID
	if raw := ctx.Query("request_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			apperrors.Respond(ctx, apperrors.Validation("request_id", "invalid request_id"))
			return
		}
		requestID = &parsed
	}

	page, pageSize := parsePaginationParams(ctx)

	filter := models.NotificationFilter{
		RequestID: requestID,
		Status:    ctx.Query("status"),
		Channel:   ctx.Query("channel"),
		Page:      page,
		PageSize:  pageSize,
	}

	logs, total, err := nc.notificationService.GetLogs(ctx.Request.Context(), filter)
	if err != nil {
		logger.WithRequest(ctx, nc.logger).Error("failed to get notification logs",
			zap.Error(err),
			zap.String("requested_by", middleware.GetUserID(ctx)),
		)
		apperrors.Respond(ctx, apperrors.Internal(err))
		return
	}
	if logs == nil {
		logs = []models.NotificationLog{}
	}

	apperrors.OK(ctx, http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": services.Paginate(page, pageSize, total),
	})
}
