package dto

import (
	"time"

	"github.com/spec-kit/gearguard/internal/domain"
)

// CreateRequestRequest opens a maintenance request.
type CreateRequestRequest struct {
	Subject       string  `json:"subject" validate:"max=200"`
	Type          string  `json:"type" validate:"max=32"`
	Equipment     string  `json:"equipment"`
	ScheduledDate *string `json:"scheduledDate"`
}

// TechnicianRequest is the body of assign-to and reassign.
type TechnicianRequest struct {
	TechnicianID string `json:"technicianId"`
}

// CloseRequest carries the hours spent on a repair.
type CloseRequest struct {
	Duration Hours `json:"duration"`
}

// RequestResponse is the public view of a maintenance request.
type RequestResponse struct {
	ID            string                 `json:"id"`
	Subject       string                 `json:"subject"`
	Type          domain.RequestType     `json:"type"`
	Priority      domain.RequestPriority `json:"priority"`
	Equipment     string                 `json:"equipment"`
	Team          string                 `json:"team"`
	AssignedTo    *string                `json:"assignedTo"`
	Status        domain.RequestStatus   `json:"status"`
	ScheduledDate *time.Time             `json:"scheduledDate"`
	Duration      *float64               `json:"duration"`
	AIExplanation *string                `json:"aiExplanation,omitempty"`
	CreatedBy     *string                `json:"createdBy"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID         string                   `json:"id"`
	ActorID    *string                  `json:"actorId"`
	ChangeType domain.RequestChangeType `json:"changeType"`
	OldValue   map[string]any           `json:"oldValue"`
	NewValue   map[string]any           `json:"newValue"`
	CreatedAt  time.Time                `json:"createdAt"`
}

// NewRequestResponse maps a domain request.
func NewRequestResponse(r *domain.Request) RequestResponse {
	return RequestResponse{
		ID:            r.ID,
		Subject:       r.Subject,
		Type:          r.Type,
		Priority:      r.Priority,
		Equipment:     r.EquipmentID,
		Team:          r.TeamID,
		AssignedTo:    r.AssignedTo,
		Status:        r.Status,
		ScheduledDate: r.ScheduledDate,
		Duration:      r.Duration,
		AIExplanation: r.AIExplanation,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// NewRequestList maps a slice of requests; never nil.
func NewRequestList(reqs []domain.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, NewRequestResponse(&reqs[i]))
	}
	return out
}

// NewHistoryList maps audit entries.
func NewHistoryList(entries []domain.RequestHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, HistoryResponse{
			ID:         h.ID,
			ActorID:    h.ActorID,
			ChangeType: h.ChangeType,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}
