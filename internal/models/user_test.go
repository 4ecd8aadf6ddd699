package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleRoundTrip(t *testing.T) {
	roles := []UserRole{RoleAdmin, RoleTeacher, RoleStudent, RoleStaff, RoleParent, RoleSuperAdmin}
	for _, role := range roles {
		assert.Equal(t, role, RoleFromID(role.ID()), "role %s should round-trip through its id", role)
		assert.Equal(t, role, ParseRole(string(role)), "role %s should round-trip through its name", role)
	}
}

func TestRoleDefaultsToStudent(t *testing.T) {
	assert.Equal(t, RoleStudent, ParseRole("JANITOR"))
	assert.Equal(t, RoleStudent, ParseRole(""))
	assert.Equal(t, RoleStudent, RoleFromID(42))
	assert.Equal(t, RoleStudent, RoleFromID(0))
	assert.Equal(t, RoleStudent.ID(), UserRole("JANITOR").ID())
}

func TestParseRoleCaseInsensitive(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleSuperAdmin, ParseRole(" super_admin "))
}

func TestAuthorizeEquality(t *testing.T) {
	roles := []UserRole{RoleAdmin, RoleTeacher, RoleStudent, RoleStaff, RoleParent, RoleSuperAdmin}
	for _, role := range roles {
		assert.True(t, Authorize(role, role), "%s should satisfy itself", role)
	}
}

func TestAuthorizeSuperAdminContainment(t *testing.T) {
	roles := []UserRole{RoleAdmin, RoleTeacher, RoleStudent, RoleStaff, RoleParent, RoleSuperAdmin}
	for _, required := range roles {
		expected := required == RoleAdmin || required == RoleSuperAdmin
		assert.Equal(t, expected, Authorize(RoleSuperAdmin, required), "SUPER_ADMIN vs %s", required)
	}

	// containment is one-directional
	assert.False(t, Authorize(RoleAdmin, RoleSuperAdmin))
}

func TestAuthorizeNoOtherContainment(t *testing.T) {
	assert.False(t, Authorize(RoleTeacher, RoleStudent))
	assert.False(t, Authorize(RoleAdmin, RoleTeacher))
	assert.False(t, Authorize(RoleStaff, RoleParent))
}

func TestAuthorizeAbsentRoles(t *testing.T) {
	assert.True(t, Authorize(RoleStudent, ""), "absent required role means unrestricted")
	assert.True(t, Authorize("", ""))
	assert.False(t, Authorize("", RoleStudent), "absent principal always denies")
}

func TestAuthorizeCaseInsensitive(t *testing.T) {
	assert.True(t, Authorize(UserRole("admin"), RoleAdmin))
	assert.True(t, Authorize(UserRole("super_admin"), UserRole("Admin")))
}
