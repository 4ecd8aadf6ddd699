package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-notify-api/internal/models"
	"github.com/noah-isme/sma-notify-api/internal/service"
	appErrors "github.com/noah-isme/sma-notify-api/pkg/errors"
	"github.com/noah-isme/sma-notify-api/pkg/response"
)

type alertTypeService interface {
	List(ctx context.Context, includeInactive bool) ([]models.AlertType, error)
	Get(ctx context.Context, id string) (*models.AlertType, error)
	Create(ctx context.Context, req service.CreateAlertTypeRequest) (*models.AlertType, error)
	Update(ctx context.Context, id string, req service.UpdateAlertTypeRequest) (*models.AlertType, error)
	Delete(ctx context.Context, id string) error
	ListStatuses(ctx context.Context) ([]models.AlertStatus, error)
}

// AlertTypeHandler exposes alert type and status reference endpoints.
type AlertTypeHandler struct {
	service alertTypeService
}

// NewAlertTypeHandler creates a new alert type handler.
func NewAlertTypeHandler(svc alertTypeService) *AlertTypeHandler {
	return &AlertTypeHandler{service: svc}
}

// List godoc
// @Summary List alert types
// @Tags Alert Types
// @Produce json
// @Param include_inactive query bool false "Include deactivated types"
// @Success 200 {object} response.Envelope
// @Router /alert-types [get]
func (h *AlertTypeHandler) List(c *gin.Context) {
	includeInactive := false
	if raw := c.Query("include_inactive"); raw != "" {
		if val, err := strconv.ParseBool(raw); err == nil {
			includeInactive = val
		}
	}

	types, err := h.service.List(c.Request.Context(), includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, types, nil)
}

// Get godoc
// @Summary Get alert type
// @Tags Alert Types
// @Produce json
// @Param id path string true "Alert type ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /alert-types/{id} [get]
func (h *AlertTypeHandler) Get(c *gin.Context) {
	alertType, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, alertType, nil)
}

// Create godoc
// @Summary Create alert type
// @Tags Alert Types
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /alert-types [post]
func (h *AlertTypeHandler) Create(c *gin.Context) {
	var req service.CreateAlertTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	alertType, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, alertType)
}

// Update godoc
// @Summary Update alert type
// @Tags Alert Types
// @Accept json
// @Produce json
// @Param id path string true "Alert type ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /alert-types/{id} [put]
func (h *AlertTypeHandler) Update(c *gin.Context) {
	var req service.UpdateAlertTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	alertType, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, alertType, nil)
}

// Delete godoc
// @Summary Deactivate alert type
// @Tags Alert Types
// @Produce json
// @Param id path string true "Alert type ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /alert-types/{id} [delete]
func (h *AlertTypeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListStatuses godoc
// @Summary List alert statuses
// @Tags Alert Types
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /alert-statuses [get]
func (h *AlertTypeHandler) ListStatuses(c *gin.Context) {
	statuses, err := h.service.ListStatuses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, statuses, nil)
}
