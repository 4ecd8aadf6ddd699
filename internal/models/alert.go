package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AlertCategory groups alert types by the business area they report on.
type AlertCategory string

const (
	CategoryLeaveManagement AlertCategory = "LEAVE_MANAGEMENT"
	CategoryFinancial       AlertCategory = "FINANCIAL"
	CategoryAcademic        AlertCategory = "ACADEMIC"
	CategoryAdministrative  AlertCategory = "ADMINISTRATIVE"
	CategorySystem          AlertCategory = "SYSTEM"
)

// ValidCategory reports whether the raw value names a known category.
func ValidCategory(raw string) bool {
	switch AlertCategory(strings.ToUpper(raw)) {
	case CategoryLeaveManagement, CategoryFinancial, CategoryAcademic, CategoryAdministrative, CategorySystem:
		return true
	default:
		return false
	}
}

// Alert lifecycle status identifiers. DISMISSED and EXPIRED are terminal.
const (
	StatusUnread       = 1
	StatusRead         = 2
	StatusAcknowledged = 3
	StatusDismissed    = 4
	StatusExpired      = 5
)

var statusNames = map[int]string{
	StatusUnread:       "UNREAD",
	StatusRead:         "READ",
	StatusAcknowledged: "ACKNOWLEDGED",
	StatusDismissed:    "DISMISSED",
	StatusExpired:      "EXPIRED",
}

// StatusName returns the canonical name for a status identifier.
func StatusName(id int) string {
	if name, ok := statusNames[id]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsFinalStatus reports whether the status permits no further transitions.
func IsFinalStatus(id int) bool {
	return id == StatusDismissed || id == StatusExpired
}

// Alert priority levels.
const (
	PriorityLow      = 1
	PriorityMedium   = 2
	PriorityHigh     = 3
	PriorityCritical = 4
)

// JSONMap stores free-form alert metadata as a JSONB column.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// AlertType is reference data describing a class of alerts.
type AlertType struct {
	ID                     string        `db:"id" json:"id"`
	Name                   string        `db:"name" json:"name"`
	Category               AlertCategory `db:"category" json:"category"`
	Icon                   string        `db:"icon" json:"icon"`
	Color                  string        `db:"color" json:"color"`
	PriorityLevel          int           `db:"priority_level" json:"priority_level"`
	DefaultExpiryDays      *int          `db:"default_expiry_days" json:"default_expiry_days,omitempty"`
	RequiresAcknowledgment bool          `db:"requires_acknowledgment" json:"requires_acknowledgment"`
	IsActive               bool          `db:"is_active" json:"is_active"`
	CreatedAt              time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time     `db:"updated_at" json:"updated_at"`
}

// AlertStatus is reference data describing a lifecycle state.
type AlertStatus struct {
	ID       int    `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	IsFinal  bool   `db:"is_final" json:"is_final"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// Alert represents a persisted notification row.
type Alert struct {
	ID             string     `db:"id" json:"id"`
	AlertTypeID    string     `db:"alert_type_id" json:"alert_type_id"`
	AlertStatusID  int        `db:"alert_status_id" json:"alert_status_id"`
	Title          string     `db:"title" json:"title"`
	Message        string     `db:"message" json:"message"`
	EntityType     string     `db:"entity_type" json:"entity_type"`
	EntityID       *string    `db:"entity_id" json:"entity_id,omitempty"`
	EntityName     *string    `db:"entity_name" json:"entity_name,omitempty"`
	TargetRole     *UserRole  `db:"target_role" json:"target_role,omitempty"`
	TargetUserID   *string    `db:"target_user_id" json:"target_user_id,omitempty"`
	PriorityLevel  int        `db:"priority_level" json:"priority_level"`
	Metadata       JSONMap    `db:"metadata" json:"metadata,omitempty"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	ReadBy         *string    `db:"read_by" json:"read_by,omitempty"`
	AcknowledgedAt *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	AcknowledgedBy *string    `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// AlertFilter captures the conjunctive listing constraints.
type AlertFilter struct {
	AlertTypeID   *string
	AlertStatusID *int
	Category      *AlertCategory
	EntityType    *string
	TargetRole    *UserRole
	PriorityLevel *int
	FromDate      *time.Time
	ToDate        *time.Time
	IsRead        *bool
	Page          int
	PageSize      int
}
