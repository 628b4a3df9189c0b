package dto

import (
	"time"

	"github.com/spec-kit/gearguard/internal/domain"
)

// CreateEquipmentRequest registers an asset. Field names follow the
// original client payload.
type CreateEquipmentRequest struct {
	Name         string  `json:"name" validate:"max=200"`
	SerialNumber string  `json:"serialNumber" validate:"max=120"`
	Department   string  `json:"department" validate:"max=120"`
	Location     *string `json:"location" validate:"omitempty,max=200"`
	AssignedTeam string  `json:"assignedTeam"`
	PurchaseDate *string `json:"purchaseDate"`
	WarrantyTill *string `json:"warrantyTill"`
	Status       string  `json:"status" validate:"omitempty,max=16"`
}

// EquipmentResponse is the public view of an asset.
type EquipmentResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	SerialNumber string                 `json:"serialNumber"`
	Department   string                 `json:"department"`
	Location     *string                `json:"location"`
	AssignedTeam string                 `json:"assignedTeam"`
	TeamName     string                 `json:"teamName,omitempty"`
	PurchaseDate *time.Time             `json:"purchaseDate"`
	WarrantyTill *time.Time             `json:"warrantyTill"`
	Status       domain.EquipmentStatus `json:"status"`
	RiskScore    float64                `json:"riskScore"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// NewEquipmentResponse maps a domain asset.
func NewEquipmentResponse(e *domain.Equipment) EquipmentResponse {
	return EquipmentResponse{
		ID:           e.ID,
		Name:         e.Name,
		SerialNumber: e.SerialNumber,
		Department:   e.Department,
		Location:     e.Location,
		AssignedTeam: e.TeamID,
		TeamName:     e.TeamName,
		PurchaseDate: e.PurchaseDate,
		WarrantyTill: e.WarrantyTill,
		Status:       e.Status,
		RiskScore:    e.RiskScore,
		CreatedAt:    e.CreatedAt,
	}
}

// NewEquipmentList maps a slice of assets.
func NewEquipmentList(items []domain.Equipment) []EquipmentResponse {
	out := make([]EquipmentResponse, 0, len(items))
	for i := range items {
		out = append(out, NewEquipmentResponse(&items[i]))
	}
	return out
}
