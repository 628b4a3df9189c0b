package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/persistence"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Count(ctx context.Context, filter UserFilter) (int, error)
	// SetTeam writes users.team_id. Only the membership service calls it.
	SetTeam(ctx context.Context, userID string, teamID *string) error
}

var userColumns = []string{"id", "name", "email", "password_hash", "role", "team_id", "created_at", "updated_at"}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, team_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TeamID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, sq.Eq{"id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, sq.Expr("LOWER(email) = ?", domain.NormalizeEmail(email)))
}

func (r *userRepository) fetchSingle(ctx context.Context, where sq.Sqlizer) (*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	user, err := scanUser(persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	b := applyUserFilter(psql.Select(userColumns...).From("users"), filter).OrderBy("name ASC", "id ASC")
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

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) Count(ctx context.Context, filter UserFilter) (int, error) {
	query, args, err := applyUserFilter(psql.Select("COUNT(*)").From("users"), filter).ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	if err := persistence.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

func (r *userRepository) SetTeam(ctx context.Context, userID string, teamID *string) error {
	const query = `UPDATE users SET team_id=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := persistence.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, teamID, userID)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func applyUserFilter(b sq.SelectBuilder, f UserFilter) sq.SelectBuilder {
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		b = b.Where(sq.Or{sq.ILike{"name": like}, sq.ILike{"email": like}})
	}
	if f.Role != nil {
		b = b.Where(sq.Eq{"role": *f.Role})
	}
	if f.TeamID != nil {
		b = b.Where(sq.Eq{"team_id": *f.TeamID})
	}
	return b
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.TeamID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
