package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-notify-api/internal/models"
)

// AlertStatusRepository provides read access to lifecycle reference data.
type AlertStatusRepository struct {
	db *sqlx.DB
}

// NewAlertStatusRepository creates the repository.
func NewAlertStatusRepository(db *sqlx.DB) *AlertStatusRepository {
	return &AlertStatusRepository{db: db}
}

// List returns the active lifecycle states ordered by identifier.
func (r *AlertStatusRepository) List(ctx context.Context) ([]models.AlertStatus, error) {
	const query = `SELECT id, name, is_final, is_active FROM alert_statuses WHERE is_active = TRUE ORDER BY id`
	var statuses []models.AlertStatus
	if err := r.db.SelectContext(ctx, &statuses, query); err != nil {
		return nil, fmt.Errorf("list alert statuses: %w", err)
	}
	return statuses, nil
}

// GetByID returns a lifecycle state by identifier.
func (r *AlertStatusRepository) GetByID(ctx context.Context, id int) (*models.AlertStatus, error) {
	const query = `SELECT id, name, is_final, is_active FROM alert_statuses WHERE id = $1`
	var status models.AlertStatus
	if err := r.db.GetContext(ctx, &status, query, id); err != nil {
		return nil, err
	}
	return &status, nil
}
