package events

import (
	"time"

	"github.com/spec-kit/gearguard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated     EventType = "request_created"
	EventRequestAssigned    EventType = "request_assigned"
	EventRequestReassigned  EventType = "request_reassigned"
	EventRequestClosed      EventType = "request_closed"
	EventPredictionRecorded EventType = "prediction_recorded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	EquipmentID string                 `json:"equipment_id"`
	TeamID      string                 `json:"team_id"`
	Type        domain.RequestType     `json:"type"`
	Priority    domain.RequestPriority `json:"priority"`
	Subject     string                 `json:"subject"`
}

// RequestAssignedPayload covers both assignment and reassignment.
type RequestAssignedPayload struct {
	TeamID         string  `json:"team_id"`
	PreviousUserID *string `json:"previous_user_id,omitempty"`
	AssignedTo     string  `json:"assigned_to"`
}

// RequestClosedPayload payload.
type RequestClosedPayload struct {
	AssignedTo    *string `json:"assigned_to,omitempty"`
	DurationHours float64 `json:"duration_hours"`
}

// PredictionRecordedPayload payload.
type PredictionRecordedPayload struct {
	PredictionID string                 `json:"prediction_id"`
	EquipmentID  string                 `json:"equipment_id"`
	RiskScore    float64                `json:"risk_score"`
	Priority     domain.RequestPriority `json:"priority"`
}
