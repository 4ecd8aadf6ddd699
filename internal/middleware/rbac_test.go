package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-notify-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runGate(t *testing.T, required models.UserRole, claims *models.JWTClaims) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/alerts", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	reached := false
	RequireRole(required)(c)
	if !c.IsAborted() {
		reached = true
	}
	return w, reached
}

func TestRequireRoleAllowsExactMatch(t *testing.T) {
	_, reached := runGate(t, models.RoleAdmin, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
	assert.True(t, reached)
}

func TestRequireRoleAllowsSuperAdminForAdmin(t *testing.T) {
	_, reached := runGate(t, models.RoleAdmin, &models.JWTClaims{UserID: "user-1", Role: models.RoleSuperAdmin})
	assert.True(t, reached)
}

func TestRequireRoleDeniesAdminForSuperAdmin(t *testing.T) {
	w, reached := runGate(t, models.RoleSuperAdmin, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleDeniesUnrelatedRole(t *testing.T) {
	w, reached := runGate(t, models.RoleAdmin, &models.JWTClaims{UserID: "user-1", Role: models.RoleTeacher})
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleRejectsMissingClaims(t *testing.T) {
	w, reached := runGate(t, models.RoleAdmin, nil)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
