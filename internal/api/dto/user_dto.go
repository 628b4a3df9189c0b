package dto

import (
	"time"

	"github.com/spec-kit/gearguard/internal/domain"
)

// RegisterRequest is the self-registration payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"omitempty,max=254"`
	Password string `json:"password" validate:"max=72"`
	Role     string `json:"role" validate:"omitempty,max=32"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is the admin user creation payload.
type CreateUserRequest struct {
	Name     string  `json:"name" validate:"max=120"`
	Email    string  `json:"email" validate:"omitempty,email,max=254"`
	Role     string  `json:"role" validate:"omitempty,max=32"`
	Password string  `json:"password" validate:"omitempty,min=6,max=72"`
	TeamID   *string `json:"teamId"`
}

// SetUserTeamRequest moves a user; null or "" removes them from their team.
type SetUserTeamRequest struct {
	TeamID *string `json:"teamId"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	TeamID    *string     `json:"teamId"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// CreatedUserResponse carries a generated password once.
type CreatedUserResponse struct {
	User         UserResponse `json:"user"`
	TempPassword string       `json:"tempPassword,omitempty"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		TeamID:    u.TeamID,
		CreatedAt: u.CreatedAt,
	}
}

// NewUserList maps a slice of users.
func NewUserList(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// PageMeta describes a paged listing.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}
