package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-notify-api/internal/models"
	"github.com/noah-isme/sma-notify-api/pkg/config"
	appErrors "github.com/noah-isme/sma-notify-api/pkg/errors"
)

type mockAlertRepo struct {
	alerts map[string]*models.Alert

	getErr     error
	listAlerts []models.Alert
	listTotal  int
	listUnread int
	listErr    error

	unreadCount    int
	unreadCalls    int
	markAllCount   int
	failTransition bool
	// beforeTransition simulates a concurrent writer sneaking in ahead of
	// the compare-and-set. Cleared after the first invocation.
	beforeTransition func()

	transitionAttempts int
	transitions        []string
}

func (m *mockAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	if m.alerts == nil {
		m.alerts = make(map[string]*models.Alert)
	}
	if alert.ID == "" {
		alert.ID = "generated-id"
	}
	stored := *alert
	m.alerts[alert.ID] = &stored
	return nil
}

func (m *mockAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if alert, ok := m.alerts[id]; ok {
		loaded := *alert
		return &loaded, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAlertRepo) List(ctx context.Context, principal models.Principal, filter models.AlertFilter) ([]models.Alert, int, int, error) {
	if m.listErr != nil {
		return nil, 0, 0, m.listErr
	}
	return m.listAlerts, m.listTotal, m.listUnread, nil
}

func (m *mockAlertRepo) UnreadCount(ctx context.Context, principal models.Principal) (int, error) {
	m.unreadCalls++
	return m.unreadCount, nil
}

func (m *mockAlertRepo) TransitionStatus(ctx context.Context, alert *models.Alert, fromStatus, toStatus int) (bool, error) {
	m.transitionAttempts++
	if m.failTransition {
		return false, nil
	}
	if m.beforeTransition != nil {
		hook := m.beforeTransition
		m.beforeTransition = nil
		hook()
	}
	stored, ok := m.alerts[alert.ID]
	if !ok || stored.AlertStatusID != fromStatus {
		return false, nil
	}
	updated := *alert
	updated.AlertStatusID = toStatus
	m.alerts[alert.ID] = &updated
	alert.AlertStatusID = toStatus
	m.transitions = append(m.transitions, models.StatusName(toStatus))
	return true, nil
}

func (m *mockAlertRepo) MarkAllRead(ctx context.Context, principal models.Principal, now time.Time) (int, error) {
	return m.markAllCount, nil
}

type mockTypeRepo struct {
	types map[string]*models.AlertType
}

func (m *mockTypeRepo) GetByID(ctx context.Context, id string) (*models.AlertType, error) {
	if alertType, ok := m.types[id]; ok {
		loaded := *alertType
		return &loaded, nil
	}
	return nil, sql.ErrNoRows
}

type mockCache struct {
	values         map[string]int
	sets           int
	deletes        int
	patternDeletes int
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	if value, ok := m.values[key]; ok {
		*(dest.(*int)) = value
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.deletes++
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patternDeletes++
	return nil
}

var (
	testT0        = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	testPrincipal = models.Principal{ID: "user-1", Role: models.RoleTeacher}
)

func newTestService(repo *mockAlertRepo, types *mockTypeRepo, cache *mockCache, at time.Time) *AlertService {
	// a plain nil keeps the interface nil too; a typed-nil *mockCache would
	// slip past the service's cache guard
	var c unreadCountCache
	if cache != nil {
		c = cache
	}
	svc := NewAlertService(repo, types, c, config.AlertsConfig{TransitionRetries: 3}, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return at }
	return svc
}

func ackType(requiresAck bool, expiryDays *int) *mockTypeRepo {
	return &mockTypeRepo{types: map[string]*models.AlertType{
		"type-1": {
			ID:                     "type-1",
			Name:                   "Leave Request Submitted",
			Category:               models.CategoryLeaveManagement,
			PriorityLevel:          models.PriorityHigh,
			DefaultExpiryDays:      expiryDays,
			RequiresAcknowledgment: requiresAck,
			IsActive:               true,
		},
	}}
}

func seedAlert(repo *mockAlertRepo, status int, expiresAt *time.Time) *models.Alert {
	alert := &models.Alert{
		ID:            "alert-1",
		AlertTypeID:   "type-1",
		AlertStatusID: status,
		Title:         "Leave request",
		Message:       "A leave request needs review",
		EntityType:    "leave_request",
		PriorityLevel: models.PriorityHigh,
		ExpiresAt:     expiresAt,
		CreatedAt:     testT0,
	}
	if repo.alerts == nil {
		repo.alerts = make(map[string]*models.Alert)
	}
	repo.alerts[alert.ID] = alert
	return alert
}

func assertErrCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, appErrors.FromError(err).Code)
}

func TestCreateDerivesExpiryFromType(t *testing.T) {
	repo := &mockAlertRepo{}
	days := 7
	svc := newTestService(repo, ackType(false, &days), nil, testT0)

	alert, err := svc.Create(context.Background(), CreateAlertRequest{
		AlertTypeID: "type-1",
		Title:       "Leave request",
		Message:     "A leave request needs review",
		EntityType:  "leave_request",
	}, "system")
	require.NoError(t, err)

	assert.Equal(t, models.StatusUnread, alert.AlertStatusID)
	require.NotNil(t, alert.ExpiresAt)
	assert.Equal(t, testT0.AddDate(0, 0, 7), *alert.ExpiresAt)
	assert.Equal(t, models.PriorityHigh, alert.PriorityLevel, "priority should default from the type")
	assert.Equal(t, testT0, alert.CreatedAt)
}

func TestCreateUnknownTypeNotFound(t *testing.T) {
	svc := newTestService(&mockAlertRepo{}, &mockTypeRepo{}, nil, testT0)

	_, err := svc.Create(context.Background(), CreateAlertRequest{
		AlertTypeID: "missing",
		Title:       "t",
		Message:     "m",
		EntityType:  "leave_request",
	}, "system")
	assertErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestCreateNormalizesTargetRole(t *testing.T) {
	repo := &mockAlertRepo{}
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	role := "teacher"
	alert, err := svc.Create(context.Background(), CreateAlertRequest{
		AlertTypeID: "type-1",
		Title:       "t",
		Message:     "m",
		EntityType:  "leave_request",
		TargetRole:  &role,
	}, "system")
	require.NoError(t, err)
	require.NotNil(t, alert.TargetRole)
	assert.Equal(t, models.RoleTeacher, *alert.TargetRole)
	assert.Nil(t, alert.ExpiresAt, "no default expiry configured")
}

func TestEffectiveStatusExpiryScenario(t *testing.T) {
	expires := testT0.AddDate(0, 0, 7)
	alert := &models.Alert{AlertStatusID: models.StatusUnread, ExpiresAt: &expires}

	assert.Equal(t, models.StatusUnread, EffectiveStatus(alert, testT0.AddDate(0, 0, 1)))
	assert.Equal(t, models.StatusExpired, EffectiveStatus(alert, testT0.AddDate(0, 0, 8)))

	// dismissal survives expiry
	alert.AlertStatusID = models.StatusDismissed
	assert.Equal(t, models.StatusDismissed, EffectiveStatus(alert, testT0.AddDate(0, 0, 8)))

	// acknowledged alerts still expire
	alert.AlertStatusID = models.StatusAcknowledged
	assert.Equal(t, models.StatusExpired, EffectiveStatus(alert, testT0.AddDate(0, 0, 8)))
}

func TestMarkReadSetsReadOnce(t *testing.T) {
	repo := &mockAlertRepo{}
	seedAlert(repo, models.StatusUnread, nil)
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	first, err := svc.MarkRead(context.Background(), "alert-1", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, first.AlertStatusID)
	require.NotNil(t, first.ReadAt)
	assert.Equal(t, testT0, *first.ReadAt)
	require.NotNil(t, first.ReadBy)
	assert.Equal(t, "user-1", *first.ReadBy)

	// a later re-read is a no-op and keeps the original attribution
	svc.now = func() time.Time { return testT0.Add(time.Hour) }
	second, err := svc.MarkRead(context.Background(), "alert-1", models.Principal{ID: "user-2", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, second.AlertStatusID)
	assert.Equal(t, testT0, *second.ReadAt)
	assert.Equal(t, "user-1", *second.ReadBy)
	assert.Len(t, repo.transitions, 1)
}

func TestMarkReadOnAcknowledgedIsNoOp(t *testing.T) {
	repo := &mockAlertRepo{}
	alert := seedAlert(repo, models.StatusAcknowledged, nil)
	readAt := testT0.Add(-time.Hour)
	readBy := "user-9"
	alert.ReadAt = &readAt
	alert.ReadBy = &readBy
	svc := newTestService(repo, ackType(true, nil), nil, testT0)

	result, err := svc.MarkRead(context.Background(), "alert-1", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, result.AlertStatusID)
	assert.Empty(t, repo.transitions)
}

func TestMarkReadOnDismissedFails(t *testing.T) {
	repo := &mockAlertRepo{}
	seedAlert(repo, models.StatusDismissed, nil)
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	_, err := svc.MarkRead(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestMarkReadOnExpiredFailsAndPersistsExpiry(t *testing.T) {
	repo := &mockAlertRepo{}
	expires := testT0.AddDate(0, 0, 7)
	seedAlert(repo, models.StatusUnread, &expires)
	svc := newTestService(repo, ackType(false, nil), nil, testT0.AddDate(0, 0, 8))

	_, err := svc.MarkRead(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrInvalidTransition.Code)
	assert.Equal(t, models.StatusExpired, repo.alerts["alert-1"].AlertStatusID, "expiry should be lazily persisted")
}

func TestMarkReadUnknownAlert(t *testing.T) {
	svc := newTestService(&mockAlertRepo{}, ackType(false, nil), nil, testT0)

	_, err := svc.MarkRead(context.Background(), "missing", testPrincipal)
	assertErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestAcknowledgeBeforeReadFails(t *testing.T) {
	repo := &mockAlertRepo{}
	seedAlert(repo, models.StatusUnread, nil)
	// the precondition trips regardless of requires_acknowledgment
	svc := newTestService(repo, ackType(true, nil), nil, testT0)

	_, err := svc.Acknowledge(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrPreconditionFailed.Code)
}

func TestAcknowledgeTypeNotRequiringFails(t *testing.T) {
	repo := &mockAlertRepo{}
	alert := seedAlert(repo, models.StatusRead, nil)
	readAt := testT0
	alert.ReadAt = &readAt
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	_, err := svc.Acknowledge(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrPreconditionFailed.Code)
}

func TestAcknowledgeSuccess(t *testing.T) {
	repo := &mockAlertRepo{}
	alert := seedAlert(repo, models.StatusRead, nil)
	readAt := testT0.Add(-time.Hour)
	alert.ReadAt = &readAt
	svc := newTestService(repo, ackType(true, nil), nil, testT0)

	result, err := svc.Acknowledge(context.Background(), "alert-1", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, result.AlertStatusID)
	require.NotNil(t, result.AcknowledgedAt)
	assert.Equal(t, testT0, *result.AcknowledgedAt)
	require.NotNil(t, result.AcknowledgedBy)
	assert.Equal(t, "user-1", *result.AcknowledgedBy)
}

func TestAcknowledgeOnTerminalFails(t *testing.T) {
	for _, status := range []int{models.StatusDismissed, models.StatusExpired} {
		repo := &mockAlertRepo{}
		alert := seedAlert(repo, status, nil)
		readAt := testT0
		alert.ReadAt = &readAt
		svc := newTestService(repo, ackType(true, nil), nil, testT0)

		_, err := svc.Acknowledge(context.Background(), "alert-1", testPrincipal)
		assertErrCode(t, err, appErrors.ErrInvalidTransition.Code)
	}
}

func TestDismissFromUnread(t *testing.T) {
	repo := &mockAlertRepo{}
	seedAlert(repo, models.StatusUnread, nil)
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	result, err := svc.Dismiss(context.Background(), "alert-1", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDismissed, result.AlertStatusID)

	// terminal: a second dismiss is rejected, not silently absorbed
	_, err = svc.Dismiss(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrInvalidTransition.Code)
	assert.Equal(t, []string{"DISMISSED"}, repo.transitions)
}

func TestDismissLosesRaceToConcurrentDismiss(t *testing.T) {
	repo := &mockAlertRepo{}
	seedAlert(repo, models.StatusUnread, nil)
	repo.beforeTransition = func() {
		repo.alerts["alert-1"].AlertStatusID = models.StatusDismissed
	}
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	_, err := svc.Dismiss(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrInvalidTransition.Code)
	assert.Equal(t, models.StatusDismissed, repo.alerts["alert-1"].AlertStatusID)
	assert.Empty(t, repo.transitions, "the losing writer must not commit a second transition")
}

func TestTransitionConflictExhaustsRetries(t *testing.T) {
	repo := &mockAlertRepo{failTransition: true}
	seedAlert(repo, models.StatusUnread, nil)
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	_, err := svc.MarkRead(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrConflict.Code)
	assert.Equal(t, 3, repo.transitionAttempts)
}

func TestListProjectsEffectiveStatus(t *testing.T) {
	expires := testT0.AddDate(0, 0, 7)
	repo := &mockAlertRepo{
		listAlerts: []models.Alert{
			{ID: "a1", AlertStatusID: models.StatusUnread},
			{ID: "a2", AlertStatusID: models.StatusUnread, ExpiresAt: &expires},
		},
		listTotal:  2,
		listUnread: 1,
	}
	svc := newTestService(repo, ackType(false, nil), nil, testT0.AddDate(0, 0, 8))

	alerts, pagination, unread, err := svc.List(context.Background(), testPrincipal, models.AlertFilter{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnread, alerts[0].AlertStatusID)
	assert.Equal(t, models.StatusExpired, alerts[1].AlertStatusID)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, unread)
}

func TestListRejectsUnknownCategory(t *testing.T) {
	svc := newTestService(&mockAlertRepo{}, ackType(false, nil), nil, testT0)

	bad := models.AlertCategory("GOSSIP")
	_, _, _, err := svc.List(context.Background(), testPrincipal, models.AlertFilter{Category: &bad})
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestUnreadCountUsesCache(t *testing.T) {
	repo := &mockAlertRepo{unreadCount: 4}
	cache := &mockCache{values: map[string]int{"alerts:unread:user-1": 9}}
	svc := newTestService(repo, ackType(false, nil), cache, testT0)

	count, err := svc.UnreadCount(context.Background(), testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, 9, count)
	assert.Zero(t, repo.unreadCalls)
}

func TestUnreadCountCacheMissFallsThrough(t *testing.T) {
	repo := &mockAlertRepo{unreadCount: 4}
	cache := &mockCache{}
	svc := newTestService(repo, ackType(false, nil), cache, testT0)

	count, err := svc.UnreadCount(context.Background(), testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 1, repo.unreadCalls)
	assert.Equal(t, 1, cache.sets)
}

func TestMarkAllReadInvalidatesCache(t *testing.T) {
	repo := &mockAlertRepo{markAllCount: 5}
	cache := &mockCache{}
	svc := newTestService(repo, ackType(false, nil), cache, testT0)

	count, err := svc.MarkAllRead(context.Background(), testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 1, cache.deletes)
}

func TestActionsRejectInvisibleAlerts(t *testing.T) {
	outsider := models.Principal{ID: "intruder-9", Role: models.RoleStudent}
	ops := map[string]func(svc *AlertService) error{
		"read": func(svc *AlertService) error {
			_, err := svc.MarkRead(context.Background(), "alert-1", outsider)
			return err
		},
		"acknowledge": func(svc *AlertService) error {
			_, err := svc.Acknowledge(context.Background(), "alert-1", outsider)
			return err
		},
		"dismiss": func(svc *AlertService) error {
			_, err := svc.Dismiss(context.Background(), "alert-1", outsider)
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			repo := &mockAlertRepo{}
			alert := seedAlert(repo, models.StatusUnread, nil)
			owner := "user-1"
			alert.TargetUserID = &owner
			svc := newTestService(repo, ackType(true, nil), nil, testT0)

			err := op(svc)
			assertErrCode(t, err, appErrors.ErrNotFound.Code)
			assert.Equal(t, models.StatusUnread, repo.alerts["alert-1"].AlertStatusID, "an invisible alert must not change state")
			assert.Empty(t, repo.transitions)
		})
	}
}

func TestRepositoryTimeoutSurfaces(t *testing.T) {
	repo := &mockAlertRepo{getErr: context.DeadlineExceeded, listErr: context.DeadlineExceeded}
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	_, err := svc.MarkRead(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrTimeout.Code)

	_, _, _, err = svc.List(context.Background(), testPrincipal, models.AlertFilter{})
	assertErrCode(t, err, appErrors.ErrTimeout.Code)
}

func TestGetFiltersInvisibleAlerts(t *testing.T) {
	repo := &mockAlertRepo{}
	alert := seedAlert(repo, models.StatusUnread, nil)
	other := "user-2"
	alert.TargetUserID = &other
	svc := newTestService(repo, ackType(false, nil), nil, testT0)

	_, err := svc.Get(context.Background(), "alert-1", testPrincipal)
	assertErrCode(t, err, appErrors.ErrNotFound.Code)

	// role broadcast is visible to the role
	role := models.RoleTeacher
	alert.TargetUserID = nil
	alert.TargetRole = &role
	result, err := svc.Get(context.Background(), "alert-1", testPrincipal)
	require.NoError(t, err)
	assert.Equal(t, "alert-1", result.ID)
}
