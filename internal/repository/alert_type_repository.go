package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-notify-api/internal/models"
)

const alertTypeColumns = `id, name, category, icon, color, priority_level, default_expiry_days, requires_acknowledgment, is_active, created_at, updated_at`

// AlertTypeRepository provides persistence for alert type reference data.
type AlertTypeRepository struct {
	db *sqlx.DB
}

// NewAlertTypeRepository creates the repository.
func NewAlertTypeRepository(db *sqlx.DB) *AlertTypeRepository {
	return &AlertTypeRepository{db: db}
}

// List returns alert types, optionally including inactive ones.
func (r *AlertTypeRepository) List(ctx context.Context, includeInactive bool) ([]models.AlertType, error) {
	query := fmt.Sprintf("SELECT %s FROM alert_types", alertTypeColumns)
	if !includeInactive {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY category, priority_level DESC, name"
	var types []models.AlertType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list alert types: %w", err)
	}
	return types, nil
}

// GetByID returns an alert type by identifier.
func (r *AlertTypeRepository) GetByID(ctx context.Context, id string) (*models.AlertType, error) {
	query := fmt.Sprintf("SELECT %s FROM alert_types WHERE id = $1", alertTypeColumns)
	var alertType models.AlertType
	if err := r.db.GetContext(ctx, &alertType, query, id); err != nil {
		return nil, err
	}
	return &alertType, nil
}

// Create inserts a new alert type.
func (r *AlertTypeRepository) Create(ctx context.Context, alertType *models.AlertType) error {
	if alertType.ID == "" {
		alertType.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if alertType.CreatedAt.IsZero() {
		alertType.CreatedAt = now
	}
	alertType.UpdatedAt = now
	query := `INSERT INTO alert_types (id, name, category, icon, color, priority_level, default_expiry_days, requires_acknowledgment, is_active, created_at, updated_at)
VALUES (:id, :name, :category, :icon, :color, :priority_level, :default_expiry_days, :requires_acknowledgment, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alertType); err != nil {
		return fmt.Errorf("create alert type: %w", err)
	}
	return nil
}

// Update modifies an existing alert type.
func (r *AlertTypeRepository) Update(ctx context.Context, alertType *models.AlertType) error {
	alertType.UpdatedAt = time.Now().UTC()
	query := `UPDATE alert_types SET name = :name, category = :category, icon = :icon, color = :color,
priority_level = :priority_level, default_expiry_days = :default_expiry_days,
requires_acknowledgment = :requires_acknowledgment, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, alertType); err != nil {
		return fmt.Errorf("update alert type: %w", err)
	}
	return nil
}

// Deactivate soft-deletes an alert type.
func (r *AlertTypeRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE alert_types SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id); err != nil {
		return fmt.Errorf("deactivate alert type: %w", err)
	}
	return nil
}
