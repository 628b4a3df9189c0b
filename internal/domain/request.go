package domain

import (
	"strings"
	"time"
)

// RequestStatus enumerates lifecycle states for maintenance requests.
type RequestStatus string

const (
	RequestStatusNew        RequestStatus = "new"
	RequestStatusInProgress RequestStatus = "in-progress"
	RequestStatusRepaired   RequestStatus = "repaired"
	// RequestStatusScrap is terminal and has no inbound transition; only direct
	// storage writes can produce it.
	RequestStatusScrap RequestStatus = "scrap"
)

// RequestStatuses lists every status in board order.
var RequestStatuses = []RequestStatus{
	RequestStatusNew,
	RequestStatusInProgress,
	RequestStatusRepaired,
	RequestStatusScrap,
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusNew, RequestStatusInProgress, RequestStatusRepaired, RequestStatusScrap:
		return true
	}
	return false
}

// RequestType enumerates why a request exists.
type RequestType string

const (
	RequestTypeCorrective RequestType = "corrective"
	RequestTypePreventive RequestType = "preventive"
	RequestTypePredictive RequestType = "predictive"
)

// Valid reports whether t is a known type.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeCorrective, RequestTypePreventive, RequestTypePredictive:
		return true
	}
	return false
}

// RequestPriority enumerates urgency.
type RequestPriority string

const (
	RequestPriorityLow    RequestPriority = "low"
	RequestPriorityMedium RequestPriority = "medium"
	RequestPriorityHigh   RequestPriority = "high"
)

// Valid reports whether p is a known priority.
func (p RequestPriority) Valid() bool {
	switch p {
	case RequestPriorityLow, RequestPriorityMedium, RequestPriorityHigh:
		return true
	}
	return false
}

// Request is the maintenance ticket aggregate.
type Request struct {
	ID            string
	Subject       string
	Type          RequestType
	Priority      RequestPriority
	EquipmentID   string
	TeamID        string
	AssignedTo    *string
	Status        RequestStatus
	ScheduledDate *time.Time
	Duration      *float64
	AIExplanation *string
	CreatedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOpen reports whether the request still needs work.
func (r *Request) IsOpen() bool {
	return r.Status != RequestStatusRepaired
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (r *Request) Clone() *Request {
	cp := *r
	cp.AssignedTo = cloneString(r.AssignedTo)
	cp.AIExplanation = cloneString(r.AIExplanation)
	cp.CreatedBy = cloneString(r.CreatedBy)
	if r.ScheduledDate != nil {
		d := *r.ScheduledDate
		cp.ScheduledDate = &d
	}
	if r.Duration != nil {
		d := *r.Duration
		cp.Duration = &d
	}
	return &cp
}

// Operation names a lifecycle transition.
type Operation string

const (
	OpAssign   Operation = "assign"
	OpAssignTo Operation = "assign-to"
	OpReassign Operation = "reassign"
	OpClose    Operation = "close"
)

type transitionKey struct {
	from RequestStatus
	op   Operation
}

var transitions = map[transitionKey]RequestStatus{
	{RequestStatusNew, OpAssign}:          RequestStatusInProgress,
	{RequestStatusNew, OpAssignTo}:        RequestStatusInProgress,
	{RequestStatusInProgress, OpReassign}: RequestStatusInProgress,
	{RequestStatusInProgress, OpClose}:    RequestStatusRepaired,
}

// NextStatus returns the status reached by applying op in state from.
func NextStatus(from RequestStatus, op Operation) (RequestStatus, bool) {
	next, ok := transitions[transitionKey{from, op}]
	return next, ok
}

// RequiredStatus returns the only status op may be applied in.
func RequiredStatus(op Operation) RequestStatus {
	for k := range transitions {
		if k.op == op {
			return k.from
		}
	}
	return ""
}

// ParseStatuses splits a comma separated list, dropping blanks.
func ParseStatuses(csv string) []RequestStatus {
	var out []RequestStatus
	for _, part := range strings.Split(csv, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, RequestStatus(s))
		}
	}
	return out
}

// ParsePriorities splits a comma separated list, dropping blanks.
func ParsePriorities(csv string) []RequestPriority {
	var out []RequestPriority
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, RequestPriority(p))
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
