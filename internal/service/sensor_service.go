package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

// SensorHistoryLimit caps GET /sensors/:id.
const SensorHistoryLimit = 100

// RecordSensorInput is one telemetry sample.
type RecordSensorInput struct {
	EquipmentID  string
	Temperature  float64
	Vibration    float64
	PowerUsage   float64
	RuntimeHours float64
	Timestamp    *time.Time
}

// SensorService stores and reads raw telemetry.
type SensorService struct {
	equipment repository.EquipmentRepository
	logs      repository.SensorLogRepository
	logger    *zap.Logger
}

// NewSensorService constructs the service.
func NewSensorService(repos *repository.Repositories, logger *zap.Logger) *SensorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SensorService{
		equipment: repos.Equipment,
		logs:      repos.SensorLogs,
		logger:    logger.Named("sensors"),
	}
}

// Record stores a sample for existing equipment.
func (s *SensorService) Record(ctx context.Context, input RecordSensorInput) (*domain.SensorLog, error) {
	equipmentID := strings.TrimSpace(input.EquipmentID)
	if equipmentID == "" {
		return nil, util.NewValidationError("equipment is required", nil)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"temperature", input.Temperature},
		{"vibration", input.Vibration},
		{"powerUsage", input.PowerUsage},
		{"runtimeHours", input.RuntimeHours},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return nil, util.NewValidationError(f.name+" must be a finite number", map[string]any{"field": f.name})
		}
	}
	if _, err := s.equipment.GetByID(ctx, equipmentID); err != nil {
		return nil, notFoundOr(err, "Equipment", map[string]any{"equipment_id": equipmentID})
	}

	log := &domain.SensorLog{
		EquipmentID:  equipmentID,
		Temperature:  input.Temperature,
		Vibration:    input.Vibration,
		PowerUsage:   input.PowerUsage,
		RuntimeHours: input.RuntimeHours,
	}
	if input.Timestamp != nil {
		log.Timestamp = input.Timestamp.UTC()
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, notFoundOr(err, "Equipment", map[string]any{"equipment_id": equipmentID})
	}
	s.logger.Debug("sensor log recorded", zap.String("equipment_id", equipmentID))
	return log, nil
}

// ListForEquipment returns the most recent samples, newest first.
func (s *SensorService) ListForEquipment(ctx context.Context, equipmentID string) ([]domain.SensorLog, error) {
	logs, err := s.logs.ListByEquipment(ctx, equipmentID, SensorHistoryLimit)
	if err != nil {
		return nil, util.MapError(err)
	}
	if logs == nil {
		logs = []domain.SensorLog{}
	}
	return logs, nil
}
