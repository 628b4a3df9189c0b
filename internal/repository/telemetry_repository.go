package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/persistence"
)

// PredictionRepository stores AI scan snapshots.
type PredictionRepository interface {
	Create(ctx context.Context, p *domain.Prediction) error
	Latest(ctx context.Context, limit int) ([]domain.Prediction, error)
}

// SensorLogRepository stores raw telemetry.
type SensorLogRepository interface {
	Create(ctx context.Context, log *domain.SensorLog) error
	ListByEquipment(ctx context.Context, equipmentID string, limit int) ([]domain.SensorLog, error)
	// ListAll returns every log oldest first.
	ListAll(ctx context.Context) ([]domain.SensorLog, error)
}

type predictionRepository struct {
	pool *pgxpool.Pool
}

// NewPredictionRepository constructs repository.
func NewPredictionRepository(pool *pgxpool.Pool) PredictionRepository {
	return &predictionRepository{pool: pool}
}

func (r *predictionRepository) Create(ctx context.Context, p *domain.Prediction) error {
	const query = `
        INSERT INTO predictions (equipment_id, temperature, vibration, power, runtime, anomaly, risk_score, priority, explanation)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query,
		p.EquipmentID,
		p.Temperature,
		p.Vibration,
		p.Power,
		p.Runtime,
		p.Anomaly,
		p.RiskScore,
		p.Priority,
		p.Explanation,
	).Scan(&p.ID, &p.CreatedAt)
	return mapError(err)
}

func (r *predictionRepository) Latest(ctx context.Context, limit int) ([]domain.Prediction, error) {
	const query = `
        SELECT id, equipment_id, temperature, vibration, power, runtime, anomaly, risk_score, priority, explanation, created_at
        FROM predictions ORDER BY created_at DESC LIMIT $1`
	rows, err := persistence.QuerierFromCtx(ctx, r.pool).Query(ctx, query, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(
			&p.ID,
			&p.EquipmentID,
			&p.Temperature,
			&p.Vibration,
			&p.Power,
			&p.Runtime,
			&p.Anomaly,
			&p.RiskScore,
			&p.Priority,
			&p.Explanation,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type sensorLogRepository struct {
	pool *pgxpool.Pool
}

// NewSensorLogRepository constructs repository.
func NewSensorLogRepository(pool *pgxpool.Pool) SensorLogRepository {
	return &sensorLogRepository{pool: pool}
}

func (r *sensorLogRepository) Create(ctx context.Context, log *domain.SensorLog) error {
	const query = `
        INSERT INTO sensor_logs (equipment_id, temperature, vibration, power_usage, runtime_hours, recorded_at)
        VALUES ($1,$2,$3,$4,$5,COALESCE($6, NOW()))
        RETURNING id, recorded_at`
	var recordedAt any
	if !log.Timestamp.IsZero() {
		recordedAt = log.Timestamp
	}
	err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query,
		log.EquipmentID,
		log.Temperature,
		log.Vibration,
		log.PowerUsage,
		log.RuntimeHours,
		recordedAt,
	).Scan(&log.ID, &log.Timestamp)
	return mapError(err)
}

func (r *sensorLogRepository) ListByEquipment(ctx context.Context, equipmentID string, limit int) ([]domain.SensorLog, error) {
	const query = `
        SELECT id, equipment_id, temperature, vibration, power_usage, runtime_hours, recorded_at
        FROM sensor_logs WHERE equipment_id=$1 ORDER BY recorded_at DESC LIMIT $2`
	return r.query(ctx, query, equipmentID, limit)
}

func (r *sensorLogRepository) ListAll(ctx context.Context) ([]domain.SensorLog, error) {
	const query = `
        SELECT id, equipment_id, temperature, vibration, power_usage, runtime_hours, recorded_at
        FROM sensor_logs ORDER BY recorded_at ASC`
	return r.query(ctx, query)
}

func (r *sensorLogRepository) query(ctx context.Context, query string, args ...any) ([]domain.SensorLog, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.SensorLog
	for rows.Next() {
		var log domain.SensorLog
		if err := rows.Scan(
			&log.ID,
			&log.EquipmentID,
			&log.Temperature,
			&log.Vibration,
			&log.PowerUsage,
			&log.RuntimeHours,
			&log.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}
