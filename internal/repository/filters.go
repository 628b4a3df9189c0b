package repository

import "github.com/spec-kit/gearguard/internal/domain"

// RequestFilter narrows request listings. Zero values mean "any".
// A Limit of zero returns every matching row.
type RequestFilter struct {
	Statuses    []domain.RequestStatus
	Priorities  []domain.RequestPriority
	Type        *domain.RequestType
	TeamID      *string
	AssignedTo  *string
	EquipmentID *string
	Subject     string
	Limit       int
	Offset      int
}

// UserFilter narrows user listings.
type UserFilter struct {
	Search string
	Role   *domain.Role
	TeamID *string
	Limit  int
	Offset int
}

// TransitionGuard is the state a request must still be in for a transition to apply.
type TransitionGuard struct {
	Status        domain.RequestStatus
	MatchAssignee bool
	AssignedTo    *string
}

// TransitionChange is what a successful transition writes. Nil fields are left unchanged.
type TransitionChange struct {
	Status     domain.RequestStatus
	AssignedTo *string
	Duration   *float64
}

// Matches reports whether r satisfies the guard.
func (g TransitionGuard) Matches(r *domain.Request) bool {
	if r.Status != g.Status {
		return false
	}
	if !g.MatchAssignee {
		return true
	}
	if g.AssignedTo == nil || r.AssignedTo == nil {
		return g.AssignedTo == nil && r.AssignedTo == nil
	}
	return *g.AssignedTo == *r.AssignedTo
}

// TeamLoad is a team with its member count and open ticket count.
type TeamLoad struct {
	TeamID      string
	Name        string
	MemberCount int
	OpenTickets int
}

// TechnicianLoad summarizes the work assigned to one technician.
type TechnicianLoad struct {
	UserID         string
	Name           string
	Email          string
	TeamID         *string
	TeamName       *string
	OpenJobs       int
	InProgressJobs int
	RepairedJobs   int
	AvgRepairHours *float64
}
