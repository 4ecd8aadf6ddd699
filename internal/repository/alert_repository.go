package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-notify-api/internal/models"
)

const alertColumns = `a.id, a.alert_type_id, a.alert_status_id, a.title, a.message, a.entity_type, a.entity_id, a.entity_name, a.target_role, a.target_user_id, a.priority_level, a.metadata, a.created_by, a.read_at, a.read_by, a.acknowledged_at, a.acknowledged_by, a.expires_at, a.created_at, a.updated_at`

// AlertRepository provides persistence for alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates the repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	query := `INSERT INTO alerts (id, alert_type_id, alert_status_id, title, message, entity_type, entity_id, entity_name, target_role, target_user_id, priority_level, metadata, created_by, read_at, read_by, acknowledged_at, acknowledged_by, expires_at, created_at, updated_at)
VALUES (:id, :alert_type_id, :alert_status_id, :title, :message, :entity_type, :entity_id, :entity_name, :target_role, :target_user_id, :priority_level, :metadata, :created_by, :read_at, :read_by, :acknowledged_at, :acknowledged_by, :expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// GetByID returns an alert by identifier.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts a WHERE a.id = $1`, alertColumns)
	var alert models.Alert
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// visibilityClause scopes a query to alerts the principal may see: targeted
// at the user, broadcast to the user's role, or broadcast to everyone.
func visibilityClause(args *[]interface{}, principal models.Principal) string {
	*args = append(*args, principal.ID, strings.ToUpper(string(principal.Role)))
	n := len(*args)
	return fmt.Sprintf("(a.target_user_id = $%d OR UPPER(a.target_role) = $%d OR (a.target_user_id IS NULL AND a.target_role IS NULL))", n-1, n)
}

func buildAlertWhere(principal models.Principal, filter models.AlertFilter) (string, []interface{}) {
	args := []interface{}{}
	where := []string{visibilityClause(&args, principal)}

	if filter.AlertTypeID != nil {
		args = append(args, *filter.AlertTypeID)
		where = append(where, fmt.Sprintf("a.alert_type_id = $%d", len(args)))
	}
	if filter.AlertStatusID != nil {
		args = append(args, *filter.AlertStatusID)
		where = append(where, fmt.Sprintf("a.alert_status_id = $%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, strings.ToUpper(string(*filter.Category)))
		where = append(where, fmt.Sprintf("t.category = $%d", len(args)))
	}
	if filter.EntityType != nil {
		args = append(args, *filter.EntityType)
		where = append(where, fmt.Sprintf("a.entity_type = $%d", len(args)))
	}
	if filter.TargetRole != nil {
		args = append(args, strings.ToUpper(string(*filter.TargetRole)))
		where = append(where, fmt.Sprintf("UPPER(a.target_role) = $%d", len(args)))
	}
	if filter.PriorityLevel != nil {
		args = append(args, *filter.PriorityLevel)
		where = append(where, fmt.Sprintf("a.priority_level = $%d", len(args)))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		where = append(where, fmt.Sprintf("a.created_at >= $%d", len(args)))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		where = append(where, fmt.Sprintf("a.created_at <= $%d", len(args)))
	}
	if filter.IsRead != nil {
		if *filter.IsRead {
			where = append(where, "a.read_at IS NOT NULL")
		} else {
			where = append(where, "a.read_at IS NULL")
		}
	}

	return strings.Join(where, " AND "), args
}

// List returns alerts visible to the principal along with the total match
// count and the unread count over the full filtered set (not just the page).
func (r *AlertRepository) List(ctx context.Context, principal models.Principal, filter models.AlertFilter) ([]models.Alert, int, int, error) {
	whereClause, args := buildAlertWhere(principal, filter)
	base := "FROM alerts a JOIN alert_types t ON t.id = a.alert_type_id"

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s
%s WHERE %s
ORDER BY a.created_at DESC, a.id DESC
LIMIT %d OFFSET %d`, alertColumns, base, whereClause, size, offset)
	var alerts []models.Alert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, 0, fmt.Errorf("list alerts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, 0, fmt.Errorf("count alerts: %w", err)
	}

	unreadQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s AND a.alert_status_id = %d AND (a.expires_at IS NULL OR a.expires_at > NOW())", base, whereClause, models.StatusUnread)
	var unread int
	if err := r.db.GetContext(ctx, &unread, unreadQuery, args...); err != nil {
		return nil, 0, 0, fmt.Errorf("count unread alerts: %w", err)
	}

	return alerts, total, unread, nil
}

// UnreadCount returns the number of effectively unread alerts visible to the
// principal.
func (r *AlertRepository) UnreadCount(ctx context.Context, principal models.Principal) (int, error) {
	args := []interface{}{}
	visibility := visibilityClause(&args, principal)
	query := fmt.Sprintf("SELECT COUNT(*) FROM alerts a WHERE %s AND a.alert_status_id = %d AND (a.expires_at IS NULL OR a.expires_at > NOW())", visibility, models.StatusUnread)
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count unread alerts: %w", err)
	}
	return count, nil
}

// TransitionStatus commits the alert's pending state under compare-and-set
// semantics: the row is updated only while its stored status still equals
// fromStatus. Returns false when another writer got there first.
func (r *AlertRepository) TransitionStatus(ctx context.Context, alert *models.Alert, fromStatus, toStatus int) (bool, error) {
	now := time.Now().UTC()
	const query = `UPDATE alerts
SET alert_status_id = $1, read_at = $2, read_by = $3, acknowledged_at = $4, acknowledged_by = $5, updated_at = $6
WHERE id = $7 AND alert_status_id = $8`
	res, err := r.db.ExecContext(ctx, query, toStatus, alert.ReadAt, alert.ReadBy, alert.AcknowledgedAt, alert.AcknowledgedBy, now, alert.ID, fromStatus)
	if err != nil {
		return false, fmt.Errorf("transition alert %s: %w", alert.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition alert %s: %w", alert.ID, err)
	}
	if rows == 0 {
		return false, nil
	}
	alert.AlertStatusID = toStatus
	alert.UpdatedAt = now
	return true, nil
}

// MarkAllRead marks every effectively unread alert visible to the principal
// as read and returns the number of rows touched.
func (r *AlertRepository) MarkAllRead(ctx context.Context, principal models.Principal, now time.Time) (int, error) {
	const query = `UPDATE alerts a
SET alert_status_id = $1, read_at = $2, read_by = $3, updated_at = $2
WHERE a.alert_status_id = $4
AND (a.expires_at IS NULL OR a.expires_at > $2)
AND (a.target_user_id = $3 OR UPPER(a.target_role) = $5 OR (a.target_user_id IS NULL AND a.target_role IS NULL))`
	res, err := r.db.ExecContext(ctx, query, models.StatusRead, now, principal.ID, models.StatusUnread, strings.ToUpper(string(principal.Role)))
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(rows), nil
}
