package domain

import "strings"

// Role enumerates account roles.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes free-form input into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Caller is the authenticated actor passed explicitly into every service call.
// It is built from the current user row, not from token claims alone.
type Caller struct {
	ID     string
	Role   Role
	TeamID *string
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// IsTechnician reports whether the caller holds the technician role.
func (c Caller) IsTechnician() bool {
	return c.Role == RoleTechnician
}

// InTeam reports whether the caller belongs to teamID.
func (c Caller) InTeam(teamID string) bool {
	return c.TeamID != nil && *c.TeamID == teamID
}

// CallerFromUser derives a Caller from a stored user.
func CallerFromUser(u *User) Caller {
	return Caller{ID: u.ID, Role: u.Role, TeamID: u.TeamID}
}

// SystemCaller is used by background jobs such as the periodic AI scan.
func SystemCaller() Caller {
	return Caller{ID: "", Role: RoleAdmin}
}
