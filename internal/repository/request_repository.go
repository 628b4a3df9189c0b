package repository

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/persistence"
)

// RequestRepository encapsulates maintenance request persistence.
type RequestRepository interface {
	// Create keeps a preset CreatedAt, used when backfilling history.
	Create(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	// Transition applies change only if the stored row still satisfies guard.
	// It returns ErrStaleState when the guard no longer holds.
	Transition(ctx context.Context, id string, guard TransitionGuard, change TransitionChange) (*domain.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
	Count(ctx context.Context, filter RequestFilter) (int, error)
	// FindOpenPredictive returns nil when no unrepaired predictive request exists.
	FindOpenPredictive(ctx context.Context, equipmentID string) (*domain.Request, error)
	TechnicianLoads(ctx context.Context) ([]TechnicianLoad, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var requestColumns = []string{
	"id", "subject", "type", "priority", "equipment_id", "team_id", "assigned_to", "status",
	"scheduled_date", "duration_hours", "ai_explanation", "created_by", "created_at", "updated_at",
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	const query = `
        INSERT INTO requests (subject, type, priority, equipment_id, team_id, assigned_to, status,
            scheduled_date, duration_hours, ai_explanation, created_by, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,COALESCE($12, NOW()),COALESCE($12, NOW()))
        RETURNING id, created_at, updated_at`
	var createdAt any
	if !req.CreatedAt.IsZero() {
		createdAt = req.CreatedAt
	}
	err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query,
		req.Subject,
		req.Type,
		req.Priority,
		req.EquipmentID,
		req.TeamID,
		req.AssignedTo,
		req.Status,
		req.ScheduledDate,
		req.Duration,
		req.AIExplanation,
		req.CreatedBy,
		createdAt,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	return mapError(err)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query, args, err := psql.Select(requestColumns...).From("requests").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	req, err := scanRequest(persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func (r *requestRepository) Transition(ctx context.Context, id string, guard TransitionGuard, change TransitionChange) (*domain.Request, error) {
	b := psql.Update("requests").
		Set("status", change.Status).
		Set("updated_at", sq.Expr("NOW()"))
	if change.AssignedTo != nil {
		b = b.Set("assigned_to", *change.AssignedTo)
	}
	if change.Duration != nil {
		b = b.Set("duration_hours", *change.Duration)
	}
	b = b.Where(sq.Eq{"id": id, "status": guard.Status})
	if guard.MatchAssignee {
		b = b.Where(sq.Expr("assigned_to IS NOT DISTINCT FROM ?", guard.AssignedTo))
	}
	query, args, err := b.Suffix("RETURNING " + strings.Join(requestColumns, ", ")).ToSql()
	if err != nil {
		return nil, err
	}

	req, err := scanRequest(persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	b := applyRequestFilter(psql.Select(requestColumns...).From("requests"), filter).
		OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		b = b.Offset(uint64(filter.Offset))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := persistence.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) Count(ctx context.Context, filter RequestFilter) (int, error) {
	query, args, err := applyRequestFilter(psql.Select("COUNT(*)").From("requests"), filter).ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	if err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

func (r *requestRepository) FindOpenPredictive(ctx context.Context, equipmentID string) (*domain.Request, error) {
	query, args, err := psql.Select(requestColumns...).From("requests").
		Where(sq.Eq{"equipment_id": equipmentID, "type": domain.RequestTypePredictive}).
		Where(sq.NotEq{"status": domain.RequestStatusRepaired}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	req, err := scanRequest(persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func (r *requestRepository) TechnicianLoads(ctx context.Context) ([]TechnicianLoad, error) {
	const query = `
        SELECT u.id, u.name, u.email, u.team_id, t.name,
               COUNT(r.id) FILTER (WHERE r.status IN ('new', 'in-progress')),
               COUNT(r.id) FILTER (WHERE r.status = 'in-progress'),
               COUNT(r.id) FILTER (WHERE r.status = 'repaired'),
               AVG(r.duration_hours) FILTER (WHERE r.status = 'repaired' AND r.duration_hours > 0)
        FROM users u
        LEFT JOIN teams t ON t.id = u.team_id
        LEFT JOIN requests r ON r.assigned_to = u.id
        WHERE u.role = 'technician'
        GROUP BY u.id, t.name
        ORDER BY 7 DESC, 6 DESC, u.name ASC`
	rows, err := persistence.QuerierFromCtx(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []TechnicianLoad
	for rows.Next() {
		var load TechnicianLoad
		if err := rows.Scan(
			&load.UserID,
			&load.Name,
			&load.Email,
			&load.TeamID,
			&load.TeamName,
			&load.OpenJobs,
			&load.InProgressJobs,
			&load.RepairedJobs,
			&load.AvgRepairHours,
		); err != nil {
			return nil, err
		}
		result = append(result, load)
	}
	return result, rows.Err()
}

func applyRequestFilter(b sq.SelectBuilder, f RequestFilter) sq.SelectBuilder {
	if len(f.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": f.Statuses})
	}
	if len(f.Priorities) > 0 {
		b = b.Where(sq.Eq{"priority": f.Priorities})
	}
	if f.Type != nil {
		b = b.Where(sq.Eq{"type": *f.Type})
	}
	if f.TeamID != nil {
		b = b.Where(sq.Eq{"team_id": *f.TeamID})
	}
	if f.AssignedTo != nil {
		b = b.Where(sq.Eq{"assigned_to": *f.AssignedTo})
	}
	if f.EquipmentID != nil {
		b = b.Where(sq.Eq{"equipment_id": *f.EquipmentID})
	}
	if s := strings.TrimSpace(f.Subject); s != "" {
		b = b.Where(sq.ILike{"subject": "%" + escapeLike(s) + "%"})
	}
	return b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	if err := row.Scan(
		&req.ID,
		&req.Subject,
		&req.Type,
		&req.Priority,
		&req.EquipmentID,
		&req.TeamID,
		&req.AssignedTo,
		&req.Status,
		&req.ScheduledDate,
		&req.Duration,
		&req.AIExplanation,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}
