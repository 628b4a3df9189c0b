package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
)

type teamRepo struct{ s *Store }

func (r *teamRepo) Create(_ context.Context, team *domain.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, seq := r.s.nextID()
	now := r.s.now()
	team.ID, team.CreatedAt, team.UpdatedAt = id, now, now
	cp := *team
	cp.Members = nil
	r.s.teams[id] = &cp
	r.s.created[id] = seq
	return nil
}

func (r *teamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *teamRepo) List(_ context.Context) ([]domain.TeamSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.TeamSummary, 0, len(r.s.teams))
	for _, t := range r.s.teams {
		out = append(out, domain.TeamSummary{ID: t.ID, Name: t.Name, MemberCount: r.s.memberCount(t.ID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *teamRepo) Loads(_ context.Context, limit int) ([]repository.TeamLoad, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	teams := make([]*domain.Team, 0, len(r.s.teams))
	for _, t := range r.s.teams {
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool { return r.s.created[teams[i].ID] > r.s.created[teams[j].ID] })
	if limit > 0 && len(teams) > limit {
		teams = teams[:limit]
	}

	out := make([]repository.TeamLoad, 0, len(teams))
	for _, t := range teams {
		open := 0
		for _, req := range r.s.requests {
			if req.TeamID == t.ID && (req.Status == domain.RequestStatusNew || req.Status == domain.RequestStatusInProgress) {
				open++
			}
		}
		out = append(out, repository.TeamLoad{
			TeamID:      t.ID,
			Name:        t.Name,
			MemberCount: r.s.memberCount(t.ID),
			OpenTickets: open,
		})
	}
	return out, nil
}

// caller must hold mu
func (s *Store) memberCount(teamID string) int {
	n := 0
	for _, u := range s.users {
		if u.TeamID != nil && *u.TeamID == teamID {
			n++
		}
	}
	return n
}
