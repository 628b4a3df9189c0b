package domain

import "time"

// RequestChangeType captures what changed in a history entry.
type RequestChangeType string

const (
	ChangeTypeCreated    RequestChangeType = "CREATED"
	ChangeTypeAssigned   RequestChangeType = "ASSIGNED"
	ChangeTypeReassigned RequestChangeType = "REASSIGNED"
	ChangeTypeClosed     RequestChangeType = "CLOSED"
)

// RequestHistory is an immutable audit trail entry.
type RequestHistory struct {
	ID         string
	RequestID  string
	ActorID    *string
	ChangeType RequestChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
