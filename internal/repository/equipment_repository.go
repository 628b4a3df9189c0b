package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/persistence"
)

// EquipmentRepository manages the asset registry.
type EquipmentRepository interface {
	Create(ctx context.Context, eq *domain.Equipment) error
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	List(ctx context.Context) ([]domain.Equipment, error)
	UpdateRiskScore(ctx context.Context, id string, score float64) error
	// TopRisk returns active equipment ordered by descending risk.
	TopRisk(ctx context.Context, limit int) ([]domain.Equipment, error)
	ActiveRiskScores(ctx context.Context) ([]float64, error)
}

const equipmentSelect = `
        SELECT e.id, e.name, e.serial_number, e.department, e.location, e.team_id, t.name,
               e.purchase_date, e.warranty_till, e.status, e.risk_score, e.created_at, e.updated_at
        FROM equipment e JOIN teams t ON t.id = e.team_id`

type equipmentRepository struct {
	pool *pgxpool.Pool
}

// NewEquipmentRepository constructs repository.
func NewEquipmentRepository(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepository{pool: pool}
}

func (r *equipmentRepository) Create(ctx context.Context, eq *domain.Equipment) error {
	const query = `
        INSERT INTO equipment (name, serial_number, department, location, team_id, purchase_date, warranty_till, status, risk_score)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query,
		eq.Name,
		eq.SerialNumber,
		eq.Department,
		eq.Location,
		eq.TeamID,
		eq.PurchaseDate,
		eq.WarrantyTill,
		eq.Status,
		eq.RiskScore,
	).Scan(&eq.ID, &eq.CreatedAt, &eq.UpdatedAt)
	return mapError(err)
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	eq, err := scanEquipment(persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, equipmentSelect+` WHERE e.id=$1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return eq, nil
}

func (r *equipmentRepository) List(ctx context.Context) ([]domain.Equipment, error) {
	return r.query(ctx, equipmentSelect+` ORDER BY e.created_at DESC`)
}

func (r *equipmentRepository) TopRisk(ctx context.Context, limit int) ([]domain.Equipment, error) {
	return r.query(ctx, equipmentSelect+`
        WHERE e.status = 'active'
        ORDER BY e.risk_score DESC, e.updated_at DESC
        LIMIT $1`, limit)
}

func (r *equipmentRepository) UpdateRiskScore(ctx context.Context, id string, score float64) error {
	const query = `UPDATE equipment SET risk_score=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := persistence.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, score, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *equipmentRepository) ActiveRiskScores(ctx context.Context) ([]float64, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.pool).Query(ctx, `SELECT risk_score FROM equipment WHERE status = 'active'`)
	if err != nil {
		return nil, mapError(err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[float64])
}

func (r *equipmentRepository) query(ctx context.Context, query string, args ...any) ([]domain.Equipment, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *eq)
	}
	return result, rows.Err()
}

func scanEquipment(row pgx.Row) (*domain.Equipment, error) {
	var eq domain.Equipment
	if err := row.Scan(
		&eq.ID,
		&eq.Name,
		&eq.SerialNumber,
		&eq.Department,
		&eq.Location,
		&eq.TeamID,
		&eq.TeamName,
		&eq.PurchaseDate,
		&eq.WarrantyTill,
		&eq.Status,
		&eq.RiskScore,
		&eq.CreatedAt,
		&eq.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &eq, nil
}
