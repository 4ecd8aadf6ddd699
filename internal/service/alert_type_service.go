package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-notify-api/internal/models"
	appErrors "github.com/noah-isme/sma-notify-api/pkg/errors"
)

type alertTypeRepository interface {
	List(ctx context.Context, includeInactive bool) ([]models.AlertType, error)
	GetByID(ctx context.Context, id string) (*models.AlertType, error)
	Create(ctx context.Context, alertType *models.AlertType) error
	Update(ctx context.Context, alertType *models.AlertType) error
	Deactivate(ctx context.Context, id string) error
}

type alertStatusRepository interface {
	List(ctx context.Context) ([]models.AlertStatus, error)
}

// AlertTypeService manages alert type and status reference data.
type AlertTypeService struct {
	repo      alertTypeRepository
	statuses  alertStatusRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAlertTypeService constructs the service.
func NewAlertTypeService(repo alertTypeRepository, statuses alertStatusRepository, validate *validator.Validate, logger *zap.Logger) *AlertTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AlertTypeService{repo: repo, statuses: statuses, validator: validate, logger: logger}
	svc.validator.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.ValidCategory(fl.Field().String())
	})
	return svc
}

// CreateAlertTypeRequest describes the create payload.
type CreateAlertTypeRequest struct {
	Name                   string `json:"name" validate:"required"`
	Category               string `json:"category" validate:"required,category"`
	Icon                   string `json:"icon"`
	Color                  string `json:"color"`
	PriorityLevel          int    `json:"priority_level" validate:"required,min=1,max=4"`
	DefaultExpiryDays      *int   `json:"default_expiry_days" validate:"omitempty,min=1"`
	RequiresAcknowledgment bool   `json:"requires_acknowledgment"`
}

// UpdateAlertTypeRequest describes the update payload.
type UpdateAlertTypeRequest struct {
	Name                   string `json:"name" validate:"required"`
	Category               string `json:"category" validate:"required,category"`
	Icon                   string `json:"icon"`
	Color                  string `json:"color"`
	PriorityLevel          int    `json:"priority_level" validate:"required,min=1,max=4"`
	DefaultExpiryDays      *int   `json:"default_expiry_days" validate:"omitempty,min=1"`
	RequiresAcknowledgment bool   `json:"requires_acknowledgment"`
	IsActive               bool   `json:"is_active"`
}

// List returns alert types.
func (s *AlertTypeService) List(ctx context.Context, includeInactive bool) ([]models.AlertType, error) {
	types, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alert types")
	}
	return types, nil
}

// Get returns an alert type by id.
func (s *AlertTypeService) Get(ctx context.Context, id string) (*models.AlertType, error) {
	alertType, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get alert type")
	}
	return alertType, nil
}

// Create registers a new alert type.
func (s *AlertTypeService) Create(ctx context.Context, req CreateAlertTypeRequest) (*models.AlertType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alert type payload")
	}
	alertType := &models.AlertType{
		Name:                   req.Name,
		Category:               models.AlertCategory(strings.ToUpper(req.Category)),
		Icon:                   req.Icon,
		Color:                  req.Color,
		PriorityLevel:          req.PriorityLevel,
		DefaultExpiryDays:      req.DefaultExpiryDays,
		RequiresAcknowledgment: req.RequiresAcknowledgment,
		IsActive:               true,
	}
	if err := s.repo.Create(ctx, alertType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create alert type")
	}
	s.logger.Info("alert type created", zap.String("alert_type_id", alertType.ID), zap.String("category", string(alertType.Category)))
	return alertType, nil
}

// Update modifies an existing alert type.
func (s *AlertTypeService) Update(ctx context.Context, id string, req UpdateAlertTypeRequest) (*models.AlertType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alert type payload")
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alert type")
	}
	existing.Name = req.Name
	existing.Category = models.AlertCategory(strings.ToUpper(req.Category))
	existing.Icon = req.Icon
	existing.Color = req.Color
	existing.PriorityLevel = req.PriorityLevel
	existing.DefaultExpiryDays = req.DefaultExpiryDays
	existing.RequiresAcknowledgment = req.RequiresAcknowledgment
	existing.IsActive = req.IsActive
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update alert type")
	}
	return existing, nil
}

// Delete deactivates an alert type; existing alerts keep referencing it.
func (s *AlertTypeService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate alert type")
	}
	return nil
}

// ListStatuses returns the lifecycle reference data.
func (s *AlertTypeService) ListStatuses(ctx context.Context) ([]models.AlertStatus, error) {
	statuses, err := s.statuses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alert statuses")
	}
	return statuses, nil
}
