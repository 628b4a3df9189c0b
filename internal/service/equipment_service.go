package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

// EquipmentService manages the asset registry.
type EquipmentService struct {
	equipment repository.EquipmentRepository
	teams     repository.TeamRepository
	logger    *zap.Logger
}

// NewEquipmentService constructs the service.
func NewEquipmentService(repos *repository.Repositories, logger *zap.Logger) *EquipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentService{equipment: repos.Equipment, teams: repos.Teams, logger: logger.Named("equipment")}
}

// CreateEquipmentInput describes a new asset.
type CreateEquipmentInput struct {
	Name         string
	SerialNumber string
	Department   string
	Location     *string
	TeamID       string
	PurchaseDate *time.Time
	WarrantyTill *time.Time
	Status       domain.EquipmentStatus
}

// Create registers equipment owned by an existing team.
func (s *EquipmentService) Create(ctx context.Context, caller domain.Caller, input CreateEquipmentInput) (*domain.Equipment, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	eq := &domain.Equipment{
		Name:         strings.TrimSpace(input.Name),
		SerialNumber: strings.TrimSpace(input.SerialNumber),
		Department:   strings.TrimSpace(input.Department),
		Location:     input.Location,
		TeamID:       strings.TrimSpace(input.TeamID),
		PurchaseDate: input.PurchaseDate,
		WarrantyTill: input.WarrantyTill,
		Status:       input.Status,
	}
	if eq.Status == "" {
		eq.Status = domain.EquipmentStatusActive
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", eq.Name},
		{"serialNumber", eq.SerialNumber},
		{"department", eq.Department},
		{"assignedTeam", eq.TeamID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, util.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if !eq.Status.Valid() {
		return nil, util.NewValidationError("status must be active or scrapped", nil)
	}

	team, err := s.teams.GetByID(ctx, eq.TeamID)
	if err != nil {
		return nil, notFoundOr(err, "Team", map[string]any{"team_id": eq.TeamID})
	}
	if err := s.equipment.Create(ctx, eq); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.NewConflict("serial number already registered", map[string]any{"serialNumber": eq.SerialNumber})
		}
		return nil, notFoundOr(err, "Team", nil)
	}
	eq.TeamName = team.Name
	s.logger.Info("equipment registered", zap.String("equipment_id", eq.ID), zap.String("team_id", eq.TeamID))
	return eq, nil
}

// List returns every asset, newest first.
func (s *EquipmentService) List(ctx context.Context) ([]domain.Equipment, error) {
	items, err := s.equipment.List(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	if items == nil {
		items = []domain.Equipment{}
	}
	return items, nil
}

// Get returns one asset.
func (s *EquipmentService) Get(ctx context.Context, id string) (*domain.Equipment, error) {
	eq, err := s.equipment.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, notFoundOr(err, "Equipment", map[string]any{"equipment_id": id})
	}
	return eq, nil
}

// UpdateRiskScore stores the latest scan score.
func (s *EquipmentService) UpdateRiskScore(ctx context.Context, id string, score float64) error {
	if err := s.equipment.UpdateRiskScore(ctx, id, score); err != nil {
		return notFoundOr(err, "Equipment", map[string]any{"equipment_id": id})
	}
	return nil
}
