package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
)

type equipmentRepo struct{ s *Store }

func (r *equipmentRepo) Create(_ context.Context, eq *domain.Equipment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.teams[eq.TeamID]; !ok {
		return repository.ErrNotFound
	}
	for _, e := range r.s.equipment {
		if e.SerialNumber == eq.SerialNumber {
			return repository.ErrDuplicate
		}
	}

	id, seq := r.s.nextID()
	now := r.s.now()
	eq.ID, eq.CreatedAt, eq.UpdatedAt = id, now, now
	cp := *eq
	r.s.equipment[id] = &cp
	r.s.created[id] = seq
	return nil
}

func (r *equipmentRepo) GetByID(_ context.Context, id string) (*domain.Equipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.equipment[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.withTeamName(e), nil
}

func (r *equipmentRepo) List(_ context.Context) ([]domain.Equipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Equipment, 0, len(r.s.equipment))
	for _, e := range r.s.equipment {
		out = append(out, *r.s.withTeamName(e))
	}
	sort.Slice(out, func(i, j int) bool { return r.s.created[out[i].ID] > r.s.created[out[j].ID] })
	return out, nil
}

func (r *equipmentRepo) UpdateRiskScore(_ context.Context, id string, score float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.equipment[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.RiskScore = score
	e.UpdatedAt = r.s.now()
	return nil
}

func (r *equipmentRepo) TopRisk(_ context.Context, limit int) ([]domain.Equipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Equipment
	for _, e := range r.s.equipment {
		if e.Status == domain.EquipmentStatusActive {
			out = append(out, *r.s.withTeamName(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return paginate(out, limit, 0), nil
}

func (r *equipmentRepo) ActiveRiskScores(_ context.Context) ([]float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []float64
	for _, e := range r.s.equipment {
		if e.Status == domain.EquipmentStatusActive {
			out = append(out, e.RiskScore)
		}
	}
	return out, nil
}

// caller must hold mu
func (s *Store) withTeamName(e *domain.Equipment) *domain.Equipment {
	cp := *e
	if t, ok := s.teams[e.TeamID]; ok {
		cp.TeamName = t.Name
	}
	return &cp
}
