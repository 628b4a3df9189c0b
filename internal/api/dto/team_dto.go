package dto

import (
	"time"

	"github.com/spec-kit/gearguard/internal/domain"
)

// CreateTeamRequest payload.
type CreateTeamRequest struct {
	Name string `json:"name" validate:"max=120"`
}

// AddMemberRequest identifies the user by id or email.
type AddMemberRequest struct {
	TeamID string `json:"teamId"`
	UserID string `json:"userId"`
	Email  string `json:"email" validate:"omitempty,max=254"`
}

// TeamSummaryResponse is one row of the team list.
type TeamSummaryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

// TeamResponse is a team with its members.
type TeamResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Members   []UserResponse `json:"members"`
	CreatedAt time.Time      `json:"createdAt"`
	Meta      *PageMeta      `json:"meta,omitempty"`
}

// NewTeamResponse maps a team and its loaded members.
func NewTeamResponse(t *domain.Team) TeamResponse {
	return TeamResponse{
		ID:        t.ID,
		Name:      t.Name,
		Members:   NewUserList(t.Members),
		CreatedAt: t.CreatedAt,
	}
}

// NewTeamSummaries maps the team list.
func NewTeamSummaries(teams []domain.TeamSummary) []TeamSummaryResponse {
	out := make([]TeamSummaryResponse, 0, len(teams))
	for _, t := range teams {
		out = append(out, TeamSummaryResponse{ID: t.ID, Name: t.Name, MemberCount: t.MemberCount})
	}
	return out
}
