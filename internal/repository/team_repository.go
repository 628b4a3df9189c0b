package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/persistence"
)

// TeamRepository manages persistence for teams. Members live on users.team_id.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context) ([]domain.TeamSummary, error)
	Loads(ctx context.Context, limit int) ([]TeamLoad, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (name)
        VALUES ($1)
        RETURNING id, created_at, updated_at`
	err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, team.Name).
		Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	return mapError(err)
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `SELECT id, name, created_at, updated_at FROM teams WHERE id=$1`
	var team domain.Team
	if err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]domain.TeamSummary, error) {
	const query = `
        SELECT t.id, t.name, COUNT(u.id)
        FROM teams t LEFT JOIN users u ON u.team_id = t.id
        GROUP BY t.id
        ORDER BY t.name ASC`
	rows, err := persistence.QuerierFromCtx(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.TeamSummary
	for rows.Next() {
		var s domain.TeamSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.MemberCount); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *teamRepository) Loads(ctx context.Context, limit int) ([]TeamLoad, error) {
	const query = `
        SELECT t.id, t.name,
               (SELECT COUNT(*) FROM users u WHERE u.team_id = t.id),
               (SELECT COUNT(*) FROM requests q WHERE q.team_id = t.id AND q.status IN ('new', 'in-progress'))
        FROM teams t
        ORDER BY t.created_at DESC
        LIMIT $1`
	rows, err := persistence.QuerierFromCtx(ctx, r.pool).Query(ctx, query, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []TeamLoad
	for rows.Next() {
		var load TeamLoad
		if err := rows.Scan(&load.TeamID, &load.Name, &load.MemberCount, &load.OpenTickets); err != nil {
			return nil, err
		}
		result = append(result, load)
	}
	return result, rows.Err()
}
