package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
	RoleStaff      UserRole = "STAFF"
	RoleParent     UserRole = "PARENT"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

var roleIDs = map[UserRole]int{
	RoleAdmin:      1,
	RoleTeacher:    2,
	RoleStudent:    3,
	RoleStaff:      4,
	RoleParent:     5,
	RoleSuperAdmin: 6,
}

var rolesByID = map[int]UserRole{
	1: RoleAdmin,
	2: RoleTeacher,
	3: RoleStudent,
	4: RoleStaff,
	5: RoleParent,
	6: RoleSuperAdmin,
}

// roleSatisfies maps a role to the roles it implicitly satisfies beyond
// itself. SUPER_ADMIN covers ADMIN; no other containment exists.
var roleSatisfies = map[UserRole][]UserRole{
	RoleSuperAdmin: {RoleAdmin},
}

// ParseRole normalises a raw role string. Unknown values default to STUDENT.
func ParseRole(raw string) UserRole {
	role := UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := roleIDs[role]; ok {
		return role
	}
	return RoleStudent
}

// RoleFromID resolves a role identifier. Unknown values default to STUDENT.
func RoleFromID(id int) UserRole {
	if role, ok := rolesByID[id]; ok {
		return role
	}
	return RoleStudent
}

// ID returns the small integer identifier for the role.
func (r UserRole) ID() int {
	if id, ok := roleIDs[r]; ok {
		return id
	}
	return roleIDs[RoleStudent]
}

// Authorize reports whether a principal holding principalRole may access a
// resource guarded by requiredRole. An empty requiredRole means the resource
// is unrestricted; an empty principalRole always denies. Matching is
// case-insensitive and containment is resolved through roleSatisfies.
func Authorize(principalRole, requiredRole UserRole) bool {
	if requiredRole == "" {
		return true
	}
	if principalRole == "" {
		return false
	}

	principal := UserRole(strings.ToUpper(string(principalRole)))
	required := UserRole(strings.ToUpper(string(requiredRole)))
	if principal == required {
		return true
	}
	for _, satisfied := range roleSatisfies[principal] {
		if satisfied == required {
			return true
		}
	}
	return false
}

// Principal identifies an authenticated actor for visibility checks.
type Principal struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
