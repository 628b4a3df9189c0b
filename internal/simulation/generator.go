// Package simulation backfills synthetic telemetry so the anomaly model has
// something to train on.
package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
)

// BreakdownSubject names the corrective requests the generator records.
const BreakdownSubject = "AI-detected breakdown"

// Failure thresholds: a sample above both is treated as a breakdown.
const (
	failureTemperature = 75.0
	failureVibration   = 4.0
)

// Config tunes a generation run.
type Config struct {
	SamplesPerEquipment int
	// Interval spaces consecutive samples of one machine.
	Interval time.Duration
	Seed     uint64
}

// Summary counts what a run wrote.
type Summary struct {
	Equipment int
	Samples   int
	Failures  int
}

// Generator writes drifting readings for every machine. Temperature and
// vibration random-walk upward until a breakdown, which is recorded as a
// repaired corrective request and resets the walk.
type Generator struct {
	equipment repository.EquipmentRepository
	logs      repository.SensorLogRepository
	requests  repository.RequestRepository
	cfg       Config
	rng       *rand.Rand
	now       func() time.Time
	logger    *zap.Logger
}

// NewGenerator constructs a generator. Zero config values take defaults.
func NewGenerator(repos *repository.Repositories, cfg Config, logger *zap.Logger) *Generator {
	if cfg.SamplesPerEquipment <= 0 {
		cfg.SamplesPerEquipment = 300
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		equipment: repos.Equipment,
		logs:      repos.SensorLogs,
		requests:  repos.Requests,
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.Named("sensorgen"),
	}
}

// Run generates samples for all equipment. Samples end at the current time.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	machines, err := g.equipment.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("list equipment: %w", err)
	}
	start := g.now().Add(-time.Duration(g.cfg.SamplesPerEquipment) * g.cfg.Interval)
	for i := range machines {
		eq := &machines[i]
		if eq.Status != domain.EquipmentStatusActive {
			continue
		}
		samples, failures, err := g.runOne(ctx, eq, start)
		sum.Samples += samples
		sum.Failures += failures
		if err != nil {
			return sum, fmt.Errorf("equipment %s: %w", eq.ID, err)
		}
		sum.Equipment++
		g.logger.Info("telemetry generated",
			zap.String("equipment_id", eq.ID),
			zap.Int("samples", samples),
			zap.Int("failures", failures))
	}
	return sum, nil
}

func (g *Generator) runOne(ctx context.Context, eq *domain.Equipment, start time.Time) (int, int, error) {
	baseTemp := g.between(40, 60)
	baseVib := g.between(1, 3)
	samples, failures := 0, 0

	for i := 0; i < g.cfg.SamplesPerEquipment; i++ {
		if err := ctx.Err(); err != nil {
			return samples, failures, err
		}
		baseTemp += g.between(-0.3, 0.8)
		baseVib += g.between(-0.05, 0.2)

		at := start.Add(time.Duration(i) * g.cfg.Interval)
		sample := &domain.SensorLog{
			EquipmentID:  eq.ID,
			Temperature:  math.Max(30, baseTemp),
			Vibration:    math.Max(0.5, baseVib),
			PowerUsage:   g.between(5, 15),
			RuntimeHours: g.between(1, 10),
			Timestamp:    at,
		}
		if err := g.logs.Create(ctx, sample); err != nil {
			return samples, failures, fmt.Errorf("store sample: %w", err)
		}
		samples++

		if sample.Temperature <= failureTemperature || sample.Vibration <= failureVibration {
			continue
		}
		hours := g.between(1, 6)
		breakdown := &domain.Request{
			Subject:     BreakdownSubject,
			Type:        domain.RequestTypeCorrective,
			Priority:    domain.RequestPriorityHigh,
			EquipmentID: eq.ID,
			TeamID:      eq.TeamID,
			Status:      domain.RequestStatusRepaired,
			Duration:    &hours,
			CreatedAt:   at.Add(g.cfg.Interval / 2),
		}
		if err := g.requests.Create(ctx, breakdown); err != nil {
			return samples, failures, fmt.Errorf("store breakdown: %w", err)
		}
		failures++
		baseTemp = g.between(40, 55)
		baseVib = g.between(1, 2)
	}
	return samples, failures, nil
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
