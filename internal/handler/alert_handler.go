package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-notify-api/internal/dto"
	"github.com/noah-isme/sma-notify-api/internal/models"
	"github.com/noah-isme/sma-notify-api/internal/service"
	appErrors "github.com/noah-isme/sma-notify-api/pkg/errors"
	"github.com/noah-isme/sma-notify-api/pkg/response"
)

type alertService interface {
	Create(ctx context.Context, req service.CreateAlertRequest, createdBy string) (*models.Alert, error)
	Get(ctx context.Context, id string, principal models.Principal) (*models.Alert, error)
	MarkRead(ctx context.Context, id string, principal models.Principal) (*models.Alert, error)
	Acknowledge(ctx context.Context, id string, principal models.Principal) (*models.Alert, error)
	Dismiss(ctx context.Context, id string, principal models.Principal) (*models.Alert, error)
	List(ctx context.Context, principal models.Principal, filter models.AlertFilter) ([]models.Alert, *models.Pagination, int, error)
	UnreadCount(ctx context.Context, principal models.Principal) (int, error)
	MarkAllRead(ctx context.Context, principal models.Principal) (int, error)
}

// AlertHandler exposes the notification feed and lifecycle action endpoints.
type AlertHandler struct {
	service alertService
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(svc alertService) *AlertHandler {
	return &AlertHandler{service: svc}
}

// List godoc
// @Summary List alerts
// @Description List alerts visible to the caller with filtering and pagination
// @Tags Alerts
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param alert_type_id query string false "Alert type filter"
// @Param alert_status_id query int false "Status filter"
// @Param category query string false "Category filter"
// @Param entity_type query string false "Business entity type filter"
// @Param target_role query string false "Target role filter"
// @Param priority_level query int false "Priority filter"
// @Param from_date query string false "Created-at lower bound (RFC3339 or YYYY-MM-DD)"
// @Param to_date query string false "Created-at upper bound (RFC3339 or YYYY-MM-DD)"
// @Param is_read query bool false "Read/unread filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := parseAlertFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	alerts, pagination, unread, err := h.service.List(c.Request.Context(), claims.Principal(), *filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	if alerts == nil {
		alerts = []models.Alert{}
	}
	totalPages := 0
	if pagination.PageSize > 0 {
		totalPages = (pagination.TotalCount + pagination.PageSize - 1) / pagination.PageSize
	}
	payload := dto.AlertListResponse{
		Alerts:      alerts,
		Total:       pagination.TotalCount,
		Page:        pagination.Page,
		PerPage:     pagination.PageSize,
		TotalPages:  totalPages,
		UnreadCount: unread,
	}
	response.JSON(c, http.StatusOK, payload, pagination)
}

// UnreadCount godoc
// @Summary Unread alert count
// @Description Return the caller's effective unread alert count
// @Tags Alerts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /alerts/unread-count [get]
func (h *AlertHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), claims.Principal())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.UnreadCountResponse{UnreadCount: count}, nil)
}

// Get godoc
// @Summary Get alert
// @Description Get a single alert visible to the caller
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	alert, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.Principal())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, alert, nil)
}

// Create godoc
// @Summary Create alert
// @Description Create a new alert from an alert type
// @Tags Alerts
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /alerts [post]
func (h *AlertHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	alert, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, alert)
}

// MarkRead godoc
// @Summary Mark alert read
// @Description Transition an alert to READ; idempotent once read
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /alerts/{id}/read [post]
func (h *AlertHandler) MarkRead(c *gin.Context) {
	h.action(c, h.service.MarkRead, "alert marked as read")
}

// Acknowledge godoc
// @Summary Acknowledge alert
// @Description Acknowledge a read alert whose type requires acknowledgment
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /alerts/{id}/acknowledge [post]
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	h.action(c, h.service.Acknowledge, "alert acknowledged")
}

// Dismiss godoc
// @Summary Dismiss alert
// @Description Move an alert to the terminal DISMISSED state
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /alerts/{id}/dismiss [post]
func (h *AlertHandler) Dismiss(c *gin.Context) {
	h.action(c, h.service.Dismiss, "alert dismissed")
}

// MarkAllRead godoc
// @Summary Mark all alerts read
// @Description Mark every visible unread alert as read
// @Tags Alerts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /alerts/read-all [post]
func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.MarkAllRead(c.Request.Context(), claims.Principal())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.BulkAlertActionResponse{Message: "alerts marked as read", Count: count}, nil)
}

func (h *AlertHandler) action(c *gin.Context, op func(context.Context, string, models.Principal) (*models.Alert, error), message string) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	alert, err := op(c.Request.Context(), c.Param("id"), claims.Principal())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.AlertActionResponse{Message: message, AlertID: alert.ID}, nil)
}

func parseAlertFilter(c *gin.Context) (*models.AlertFilter, error) {
	var filter models.AlertFilter

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "page must be an integer")
	}
	filter.Page = page

	size, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "page_size must be an integer")
	}
	filter.PageSize = size

	if raw := c.Query("alert_type_id"); raw != "" {
		filter.AlertTypeID = &raw
	}
	if raw := c.Query("alert_status_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "alert_status_id must be an integer")
		}
		filter.AlertStatusID = &id
	}
	if raw := c.Query("category"); raw != "" {
		category := models.AlertCategory(raw)
		filter.Category = &category
	}
	if raw := c.Query("entity_type"); raw != "" {
		filter.EntityType = &raw
	}
	if raw := c.Query("target_role"); raw != "" {
		role := models.ParseRole(raw)
		filter.TargetRole = &role
	}
	if raw := c.Query("priority_level"); raw != "" {
		priority, err := strconv.Atoi(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "priority_level must be an integer")
		}
		filter.PriorityLevel = &priority
	}
	if raw := c.Query("from_date"); raw != "" {
		ts, err := parseDate(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "from_date must be RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &ts
	}
	if raw := c.Query("to_date"); raw != "" {
		ts, err := parseDate(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "to_date must be RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &ts
	}
	if raw := c.Query("is_read"); raw != "" {
		isRead, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "is_read must be a boolean")
		}
		filter.IsRead = &isRead
	}

	return &filter, nil
}

func parseDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
