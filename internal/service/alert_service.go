package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-notify-api/internal/models"
	"github.com/noah-isme/sma-notify-api/pkg/config"
	appErrors "github.com/noah-isme/sma-notify-api/pkg/errors"
)

const unreadCacheKeyPrefix = "alerts:unread:"

type alertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, principal models.Principal, filter models.AlertFilter) ([]models.Alert, int, int, error)
	UnreadCount(ctx context.Context, principal models.Principal) (int, error)
	TransitionStatus(ctx context.Context, alert *models.Alert, fromStatus, toStatus int) (bool, error)
	MarkAllRead(ctx context.Context, principal models.Principal, now time.Time) (int, error)
}

type alertTypeProvider interface {
	GetByID(ctx context.Context, id string) (*models.AlertType, error)
}

type unreadCountCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type transitionRecorder interface {
	ObserveTransition(toStatus string)
	ObserveTransitionConflict()
}

// AlertService enforces the alert lifecycle state machine and computes
// derived visibility and unread state.
type AlertService struct {
	repo      alertRepository
	types     alertTypeProvider
	cache     unreadCountCache
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.AlertsConfig
	metrics   transitionRecorder
	now       func() time.Time
}

// WithMetrics attaches transition instrumentation. Optional.
func (s *AlertService) WithMetrics(m transitionRecorder) *AlertService {
	s.metrics = m
	return s
}

// NewAlertService constructs the service.
func NewAlertService(repo alertRepository, types alertTypeProvider, cache unreadCountCache, cfg config.AlertsConfig, validate *validator.Validate, logger *zap.Logger) *AlertService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TransitionRetries <= 0 {
		cfg.TransitionRetries = 3
	}
	return &AlertService{
		repo:      repo,
		types:     types,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// EffectiveStatus projects the alert's status at the given instant: an alert
// past its expiry reads as EXPIRED unless it was already dismissed. This is a
// read-time projection, never a write.
func EffectiveStatus(alert *models.Alert, now time.Time) int {
	if alert.ExpiresAt != nil && now.After(*alert.ExpiresAt) && alert.AlertStatusID != models.StatusDismissed {
		return models.StatusExpired
	}
	return alert.AlertStatusID
}

// CreateAlertRequest describes the payload for producing a new alert.
type CreateAlertRequest struct {
	AlertTypeID   string         `json:"alert_type_id" validate:"required"`
	Title         string         `json:"title" validate:"required"`
	Message       string         `json:"message" validate:"required"`
	EntityType    string         `json:"entity_type" validate:"required"`
	EntityID      *string        `json:"entity_id"`
	EntityName    *string        `json:"entity_name"`
	TargetRole    *string        `json:"target_role"`
	TargetUserID  *string        `json:"target_user_id"`
	PriorityLevel int            `json:"priority_level" validate:"omitempty,min=1,max=4"`
	Metadata      models.JSONMap `json:"metadata"`
	ExpiresAt     *time.Time     `json:"expires_at"`
}

// Create initializes a new UNREAD alert from its type, deriving expiry from
// the type's default_expiry_days when the request does not set one.
func (s *AlertService) Create(ctx context.Context, req CreateAlertRequest, createdBy string) (*models.Alert, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alert payload")
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	alertType, err := s.types.GetByID(opCtx, req.AlertTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert type not found")
		}
		return nil, s.repoError(err, "failed to load alert type")
	}
	if !alertType.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "alert type is inactive")
	}

	now := s.now().UTC()

	alert := &models.Alert{
		AlertTypeID:   alertType.ID,
		AlertStatusID: models.StatusUnread,
		Title:         req.Title,
		Message:       req.Message,
		EntityType:    req.EntityType,
		EntityID:      req.EntityID,
		EntityName:    req.EntityName,
		TargetUserID:  req.TargetUserID,
		PriorityLevel: req.PriorityLevel,
		Metadata:      req.Metadata,
		CreatedBy:     createdBy,
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     now,
	}
	if req.TargetRole != nil && *req.TargetRole != "" {
		role := models.ParseRole(*req.TargetRole)
		alert.TargetRole = &role
	}
	if alert.PriorityLevel == 0 {
		alert.PriorityLevel = alertType.PriorityLevel
	}
	if alert.ExpiresAt == nil && alertType.DefaultExpiryDays != nil {
		expires := now.AddDate(0, 0, *alertType.DefaultExpiryDays)
		alert.ExpiresAt = &expires
	}

	if err := s.repo.Create(opCtx, alert); err != nil {
		return nil, s.repoError(err, "failed to create alert")
	}

	s.invalidateUnread(ctx, alert)
	s.logger.Info("alert created",
		zap.String("alert_id", alert.ID),
		zap.String("alert_type_id", alert.AlertTypeID),
		zap.String("entity_type", alert.EntityType),
	)
	return alert, nil
}

// Get returns a single alert if it is visible to the principal, with its
// status projected through EffectiveStatus.
func (s *AlertService) Get(ctx context.Context, id string, principal models.Principal) (*models.Alert, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	alert, err := s.load(opCtx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(alert, principal) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
	}
	projected := *alert
	projected.AlertStatusID = EffectiveStatus(alert, s.now().UTC())
	return &projected, nil
}

// MarkRead transitions an UNREAD alert to READ. Re-marking an alert that is
// already READ or ACKNOWLEDGED is a no-op; terminal states reject the call.
// read_at/read_by are set on the first transition only. Alerts outside the
// principal's visibility read as not found, as in Get.
func (s *AlertService) MarkRead(ctx context.Context, id string, principal models.Principal) (*models.Alert, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	for attempt := 0; attempt < s.cfg.TransitionRetries; attempt++ {
		alert, err := s.load(opCtx, id)
		if err != nil {
			return nil, err
		}
		if !visibleTo(alert, principal) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}

		now := s.now().UTC()
		if err := s.rejectTerminal(opCtx, alert, now); err != nil {
			return nil, err
		}
		if alert.AlertStatusID == models.StatusRead || alert.AlertStatusID == models.StatusAcknowledged {
			return alert, nil
		}

		updated := *alert
		updated.ReadAt = &now
		readBy := principal.ID
		updated.ReadBy = &readBy

		ok, err := s.repo.TransitionStatus(opCtx, &updated, models.StatusUnread, models.StatusRead)
		if err != nil {
			return nil, s.repoError(err, "failed to mark alert read")
		}
		if ok {
			s.recordTransition(models.StatusRead)
			s.invalidateUnread(ctx, alert)
			return &updated, nil
		}
		s.recordConflict()
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "alert was modified concurrently, please retry")
}

// Acknowledge transitions a READ alert to ACKNOWLEDGED. The alert's type must
// require acknowledgment and the alert must have been read first.
func (s *AlertService) Acknowledge(ctx context.Context, id string, principal models.Principal) (*models.Alert, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	for attempt := 0; attempt < s.cfg.TransitionRetries; attempt++ {
		alert, err := s.load(opCtx, id)
		if err != nil {
			return nil, err
		}
		if !visibleTo(alert, principal) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}

		now := s.now().UTC()
		if err := s.rejectTerminal(opCtx, alert, now); err != nil {
			return nil, err
		}
		if alert.ReadAt == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "alert must be read before acknowledgment")
		}

		alertType, err := s.types.GetByID(opCtx, alert.AlertTypeID)
		if err != nil {
			return nil, s.repoError(err, "failed to load alert type")
		}
		if !alertType.RequiresAcknowledgment {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "alert type does not require acknowledgment")
		}
		if alert.AlertStatusID == models.StatusAcknowledged {
			return alert, nil
		}

		updated := *alert
		updated.AcknowledgedAt = &now
		ackBy := principal.ID
		updated.AcknowledgedBy = &ackBy

		ok, err := s.repo.TransitionStatus(opCtx, &updated, alert.AlertStatusID, models.StatusAcknowledged)
		if err != nil {
			return nil, s.repoError(err, "failed to acknowledge alert")
		}
		if ok {
			s.recordTransition(models.StatusAcknowledged)
			s.invalidateUnread(ctx, alert)
			return &updated, nil
		}
		s.recordConflict()
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "alert was modified concurrently, please retry")
}

// Dismiss transitions the alert to the terminal DISMISSED state from any
// non-terminal state. Prior read is not required.
func (s *AlertService) Dismiss(ctx context.Context, id string, principal models.Principal) (*models.Alert, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	for attempt := 0; attempt < s.cfg.TransitionRetries; attempt++ {
		alert, err := s.load(opCtx, id)
		if err != nil {
			return nil, err
		}
		if !visibleTo(alert, principal) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}

		now := s.now().UTC()
		if err := s.rejectTerminal(opCtx, alert, now); err != nil {
			return nil, err
		}

		updated := *alert
		ok, err := s.repo.TransitionStatus(opCtx, &updated, alert.AlertStatusID, models.StatusDismissed)
		if err != nil {
			return nil, s.repoError(err, "failed to dismiss alert")
		}
		if ok {
			s.recordTransition(models.StatusDismissed)
			s.invalidateUnread(ctx, alert)
			s.logger.Info("alert dismissed", zap.String("alert_id", alert.ID), zap.String("by", principal.ID))
			return &updated, nil
		}
		s.recordConflict()
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "alert was modified concurrently, please retry")
}

// List returns the page of alerts visible to the principal, the pagination
// metadata, and the unread count over the full filtered set.
func (s *AlertService) List(ctx context.Context, principal models.Principal, filter models.AlertFilter) ([]models.Alert, *models.Pagination, int, error) {
	if filter.Category != nil && !models.ValidCategory(string(*filter.Category)) {
		return nil, nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", string(*filter.Category)))
	}
	if filter.AlertStatusID != nil && models.StatusName(*filter.AlertStatusID) == "UNKNOWN" {
		return nil, nil, 0, appErrors.Clone(appErrors.ErrValidation, "unknown alert status")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	alerts, total, unread, err := s.repo.List(opCtx, principal, filter)
	if err != nil {
		return nil, nil, 0, s.repoError(err, "failed to list alerts")
	}

	now := s.now().UTC()
	for i := range alerts {
		alerts[i].AlertStatusID = EffectiveStatus(&alerts[i], now)
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return alerts, pagination, unread, nil
}

// UnreadCount returns the principal's effective unread count, served from the
// cache when fresh.
func (s *AlertService) UnreadCount(ctx context.Context, principal models.Principal) (int, error) {
	key := unreadCacheKey(principal.ID)
	if s.cache != nil {
		var cached int
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	count, err := s.repo.UnreadCount(opCtx, principal)
	if err != nil {
		return 0, s.repoError(err, "failed to count unread alerts")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, s.cfg.UnreadCacheTTL); err != nil {
			s.logger.Warn("unread count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

// MarkAllRead marks every visible effectively-unread alert as read.
func (s *AlertService) MarkAllRead(ctx context.Context, principal models.Principal) (int, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	count, err := s.repo.MarkAllRead(opCtx, principal, s.now().UTC())
	if err != nil {
		return 0, s.repoError(err, "failed to mark alerts read")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, unreadCacheKey(principal.ID)); err != nil {
			s.logger.Warn("unread count cache invalidation failed", zap.Error(err))
		}
	}
	return count, nil
}

// rejectTerminal fails the transition when the alert's effective status is
// terminal. An alert found past its expiry is lazily promoted to EXPIRED
// before the rejection surfaces.
func (s *AlertService) rejectTerminal(ctx context.Context, alert *models.Alert, now time.Time) error {
	switch EffectiveStatus(alert, now) {
	case models.StatusDismissed:
		return appErrors.Clone(appErrors.ErrInvalidTransition, "alert has been dismissed")
	case models.StatusExpired:
		if !models.IsFinalStatus(alert.AlertStatusID) {
			s.lazyExpire(ctx, alert)
		}
		return appErrors.Clone(appErrors.ErrInvalidTransition, "alert has expired")
	default:
		return nil
	}
}

// lazyExpire persists the EXPIRED projection. Losing the race is fine; the
// projection already answers reads.
func (s *AlertService) lazyExpire(ctx context.Context, alert *models.Alert) {
	expired := *alert
	ok, err := s.repo.TransitionStatus(ctx, &expired, alert.AlertStatusID, models.StatusExpired)
	if err != nil {
		s.logger.Warn("lazy expire failed", zap.String("alert_id", alert.ID), zap.Error(err))
		return
	}
	if ok {
		s.recordTransition(models.StatusExpired)
	}
	s.invalidateUnread(ctx, alert)
}

func (s *AlertService) load(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, s.repoError(err, "failed to load alert")
	}
	return alert, nil
}

// invalidateUnread drops the cached unread count for the affected audience.
// Role broadcasts touch an unknown set of principals, so the whole keyspace
// goes.
func (s *AlertService) invalidateUnread(ctx context.Context, alert *models.Alert) {
	if s.cache == nil {
		return
	}
	var err error
	if alert.TargetUserID != nil && alert.TargetRole == nil {
		err = s.cache.Delete(ctx, unreadCacheKey(*alert.TargetUserID))
	} else {
		err = s.cache.DeleteByPattern(ctx, unreadCacheKeyPrefix+"*")
	}
	if err != nil {
		s.logger.Warn("unread count cache invalidation failed", zap.Error(err))
	}
}

func (s *AlertService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.QueryTimeout)
}

func (s *AlertService) repoError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func visibleTo(alert *models.Alert, principal models.Principal) bool {
	if alert.TargetUserID == nil && alert.TargetRole == nil {
		return true
	}
	if alert.TargetUserID != nil && *alert.TargetUserID == principal.ID {
		return true
	}
	if alert.TargetRole != nil && strings.EqualFold(string(*alert.TargetRole), string(principal.Role)) {
		return true
	}
	return false
}

func (s *AlertService) recordTransition(toStatus int) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(models.StatusName(toStatus))
	}
}

func (s *AlertService) recordConflict() {
	if s.metrics != nil {
		s.metrics.ObserveTransitionConflict()
	}
}

func unreadCacheKey(principalID string) string {
	return unreadCacheKeyPrefix + principalID
}
