package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-notify-api/internal/middleware"
	"github.com/noah-isme/sma-notify-api/internal/models"
	"github.com/noah-isme/sma-notify-api/internal/service"
	appErrors "github.com/noah-isme/sma-notify-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAlertService struct {
	alert      *models.Alert
	alerts     []models.Alert
	pagination *models.Pagination
	unread     int
	count      int
	err        error

	gotFilter models.AlertFilter
}

func (f *fakeAlertService) Create(ctx context.Context, req service.CreateAlertRequest, createdBy string) (*models.Alert, error) {
	return f.alert, f.err
}

func (f *fakeAlertService) Get(ctx context.Context, id string, principal models.Principal) (*models.Alert, error) {
	return f.alert, f.err
}

func (f *fakeAlertService) MarkRead(ctx context.Context, id string, principal models.Principal) (*models.Alert, error) {
	return f.alert, f.err
}

func (f *fakeAlertService) Acknowledge(ctx context.Context, id string, principal models.Principal) (*models.Alert, error) {
	return f.alert, f.err
}

func (f *fakeAlertService) Dismiss(ctx context.Context, id string, principal models.Principal) (*models.Alert, error) {
	return f.alert, f.err
}

func (f *fakeAlertService) List(ctx context.Context, principal models.Principal, filter models.AlertFilter) ([]models.Alert, *models.Pagination, int, error) {
	f.gotFilter = filter
	return f.alerts, f.pagination, f.unread, f.err
}

func (f *fakeAlertService) UnreadCount(ctx context.Context, principal models.Principal) (int, error) {
	return f.count, f.err
}

func (f *fakeAlertService) MarkAllRead(ctx context.Context, principal models.Principal) (int, error) {
	return f.count, f.err
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func authenticate(c *gin.Context, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestListReturnsUnreadCountAndPages(t *testing.T) {
	svc := &fakeAlertService{
		alerts:     []models.Alert{{ID: "alert-1", AlertStatusID: models.StatusUnread}},
		pagination: &models.Pagination{Page: 2, PageSize: 10, TotalCount: 25},
		unread:     3,
	}
	h := NewAlertHandler(svc)

	c, w := testContext(t, http.MethodGet, "/alerts?page=2&page_size=10&is_read=false", nil)
	authenticate(c, models.RoleTeacher)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Nil(t, env.Error)

	var payload struct {
		Total       int `json:"total"`
		Page        int `json:"page"`
		PerPage     int `json:"per_page"`
		TotalPages  int `json:"total_pages"`
		UnreadCount int `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, 25, payload.Total)
	assert.Equal(t, 2, payload.Page)
	assert.Equal(t, 3, payload.TotalPages)
	assert.Equal(t, 3, payload.UnreadCount)

	require.NotNil(t, svc.gotFilter.IsRead)
	assert.False(t, *svc.gotFilter.IsRead)
}

func TestListRejectsMalformedFilter(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{})

	cases := map[string]string{
		"bad bool": "/alerts?is_read=maybe",
		"bad int":  "/alerts?priority_level=high",
		"bad date": "/alerts?from_date=yesterday",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			c, w := testContext(t, http.MethodGet, target, nil)
			authenticate(c, models.RoleTeacher)
			h.List(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decodeEnvelope(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
		})
	}
}

func TestListRequiresAuthentication(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{})

	c, w := testContext(t, http.MethodGet, "/alerts", nil)
	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetNotFound(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{err: appErrors.Clone(appErrors.ErrNotFound, "alert not found")})

	c, w := testContext(t, http.MethodGet, "/alerts/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	authenticate(c, models.RoleTeacher)
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkReadReturnsActionResponse(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{alert: &models.Alert{ID: "alert-1", AlertStatusID: models.StatusRead}})

	c, w := testContext(t, http.MethodPost, "/alerts/alert-1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "alert-1"}}
	authenticate(c, models.RoleTeacher)
	h.MarkRead(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var payload struct {
		Message string `json:"message"`
		AlertID string `json:"alert_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "alert marked as read", payload.Message)
	assert.Equal(t, "alert-1", payload.AlertID)
}

func TestAcknowledgePreconditionFailed(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "alert must be read before acknowledgment")})

	c, w := testContext(t, http.MethodPost, "/alerts/alert-1/acknowledge", nil)
	c.Params = gin.Params{{Key: "id", Value: "alert-1"}}
	authenticate(c, models.RoleTeacher)
	h.Acknowledge(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, env.Error.Code)
}

func TestDismissTerminalConflict(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{err: appErrors.Clone(appErrors.ErrInvalidTransition, "alert has been dismissed")})

	c, w := testContext(t, http.MethodPost, "/alerts/alert-1/dismiss", nil)
	c.Params = gin.Params{{Key: "id", Value: "alert-1"}}
	authenticate(c, models.RoleTeacher)
	h.Dismiss(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, env.Error.Code)
}

func TestCreateRejectsBadBody(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{})

	c, w := testContext(t, http.MethodPost, "/alerts", []byte("{not json"))
	authenticate(c, models.RoleAdmin)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReturnsCreated(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{alert: &models.Alert{ID: "alert-1", AlertStatusID: models.StatusUnread}})

	body, err := json.Marshal(map[string]interface{}{
		"alert_type_id": "type-1",
		"title":         "Leave request",
		"message":       "A leave request needs review",
		"entity_type":   "leave_request",
	})
	require.NoError(t, err)

	c, w := testContext(t, http.MethodPost, "/alerts", body)
	authenticate(c, models.RoleAdmin)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestMarkAllReadReturnsCount(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{count: 6})

	c, w := testContext(t, http.MethodPost, "/alerts/read-all", nil)
	authenticate(c, models.RoleTeacher)
	h.MarkAllRead(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, 6, payload.Count)
}

func TestUnreadCountEndpoint(t *testing.T) {
	h := NewAlertHandler(&fakeAlertService{count: 9})

	c, w := testContext(t, http.MethodGet, "/alerts/unread-count", nil)
	authenticate(c, models.RoleStudent)
	h.UnreadCount(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var payload struct {
		UnreadCount int `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, 9, payload.UnreadCount)
}
