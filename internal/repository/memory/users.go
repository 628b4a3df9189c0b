package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	for _, u := range r.s.users {
		if domain.NormalizeEmail(u.Email) == email {
			return repository.ErrDuplicate
		}
	}
	if user.TeamID != nil {
		if _, ok := r.s.teams[*user.TeamID]; !ok {
			return repository.ErrNotFound
		}
	}

	id, seq := r.s.nextID()
	now := r.s.now()
	user.ID, user.CreatedAt, user.UpdatedAt = id, now, now
	cp := cloneUser(user)
	r.s.users[id] = cp
	r.s.created[id] = seq
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, u := range r.s.users {
		if domain.NormalizeEmail(u.Email) == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.s.filterUsers(filter)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, filter.Limit, filter.Offset), nil
}

func (r *userRepo) Count(_ context.Context, filter repository.UserFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.filterUsers(filter)), nil
}

func (r *userRepo) SetTeam(_ context.Context, userID string, teamID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if teamID != nil {
		if _, ok := r.s.teams[*teamID]; !ok {
			return repository.ErrNotFound
		}
	}
	u.TeamID = cloneString(teamID)
	u.UpdatedAt = r.s.now()
	return nil
}

// caller must hold mu
func (s *Store) filterUsers(f repository.UserFilter) []domain.User {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []domain.User
	for _, u := range s.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.TeamID != nil && (u.TeamID == nil || *u.TeamID != *f.TeamID) {
			continue
		}
		out = append(out, *cloneUser(u))
	}
	return out
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	cp.TeamID = cloneString(u.TeamID)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
