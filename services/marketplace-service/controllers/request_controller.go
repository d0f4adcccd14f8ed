package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/eventhub/backend/services/common/errors"
	"github.com/eventhub/backend/services/common/logger"
	"github.com/eventhub/backend/services/marketplace-service/middleware"
	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/services"
)

type RequestController struct {
	requestService services.RequestService
	logger         *zap.Logger
}

func NewRequestController(svc services.RequestService, logger *zap.Logger) *RequestController {
	return &RequestController{requestService: svc, logger: logger}
}

type selectPackageBody struct {
	SelectedPackage string `json:"selectedPackage"`
}

type selectServicesBody struct {
	Services json.RawMessage `json:"services"`
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("id", "id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		apperrors.Respond(c, apperrors.Validation("", "invalid request body: "+err.Error()))
		return false
	}
	return true
}

// CreateRequest handles POST /api/requests.
func (rc *RequestController) CreateRequest(c *gin.Context) {
	var in models.CreateRequestInput
	if !bindJSON(c, &in) {
		return
	}

	result, err := rc.requestService.CreateRequest(c.Request.Context(), &in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	if result.Notification != nil && result.Notification.Degraded {
		logger.WithRequest(c, rc.logger).Warn("request created with degraded operator notification",
			zap.String("id", result.ID.String()),
			zap.String("caller", middleware.GetUserID(c)),
		)
	}
	apperrors.OK(c, http.StatusCreated, result)
}

func (rc *RequestController) GetRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	req, err := rc.requestService.GetRequest(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, req)
}

// SelectPackage handles PUT /api/requests/:id/package.
func (rc *RequestController) SelectPackage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body selectPackageBody
	if !bindJSON(c, &body) {
		return
	}

	req, err := rc.requestService.SelectPackage(c.Request.Context(), id, body.SelectedPackage)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, gin.H{"id": req.ID, "status": req.Status, "selectedPackage": req.SelectedPackage})
}

// SelectServices handles PUT /api/requests/:id/services. The services field
// must be a JSON array; null, objects and scalars are rejected.
func (rc *RequestController) SelectServices(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body selectServicesBody
	if !bindJSON(c, &body) {
		return
	}

	raw := bytes.TrimSpace(body.Services)
	if len(raw) == 0 || raw[0] != '[' {
		apperrors.Respond(c, apperrors.Validation("services", "services must be an array of strings"))
		return
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		apperrors.Respond(c, apperrors.Validation("services", "services must be an array of strings"))
		return
	}
	if list == nil {
		list = []string{}
	}

	req, err := rc.requestService.SelectServices(c.Request.Context(), id, list)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, gin.H{"id": req.ID, "status": req.Status, "selectedServices": req.Services()})
}

// UpdateRequest handles the admin PATCH /api/requests/:id.
func (rc *RequestController) UpdateRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in models.UpdateRequestInput
	if !bindJSON(c, &in) {
		return
	}

	req, err := rc.requestService.UpdateRequest(c.Request.Context(), id, &in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	logger.WithRequest(c, rc.logger).Info("request updated by operator",
		zap.String("id", id.String()),
		zap.String("status", string(req.Status)),
		zap.String("operator", middleware.GetUserID(c)),
	)
	apperrors.OK(c, http.StatusOK, req)
}
