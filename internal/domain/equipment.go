package domain

import "time"

// EquipmentStatus enumerates asset states.
type EquipmentStatus string

const (
	EquipmentStatusActive   EquipmentStatus = "active"
	EquipmentStatusScrapped EquipmentStatus = "scrapped"
)

// Valid reports whether s is a known equipment status.
func (s EquipmentStatus) Valid() bool {
	return s == EquipmentStatusActive || s == EquipmentStatusScrapped
}

// Equipment is a physical asset owned by exactly one team.
type Equipment struct {
	ID           string
	Name         string
	SerialNumber string
	Department   string
	Location     *string
	TeamID       string
	TeamName     string
	PurchaseDate *time.Time
	WarrantyTill *time.Time
	Status       EquipmentStatus
	RiskScore    float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
