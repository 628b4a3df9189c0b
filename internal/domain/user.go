package domain

import (
	"strings"
	"time"
)

// User is an account: employee, technician or admin.
// TeamID is only ever set for technicians.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	TeamID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail trims and lower-cases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
