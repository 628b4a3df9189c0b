package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
)

type requestRepo struct{ s *Store }

func (r *requestRepo) Create(_ context.Context, req *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.equipment[req.EquipmentID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.teams[req.TeamID]; !ok {
		return repository.ErrNotFound
	}

	id, seq := r.s.nextID()
	now := r.s.now()
	if !req.CreatedAt.IsZero() {
		now = req.CreatedAt
	}
	req.ID, req.CreatedAt, req.UpdatedAt = id, now, now
	r.s.requests[id] = req.Clone()
	r.s.created[id] = seq
	return nil
}

func (r *requestRepo) GetByID(_ context.Context, id string) (*domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return req.Clone(), nil
}

func (r *requestRepo) Transition(_ context.Context, id string, guard repository.TransitionGuard, change repository.TransitionChange) (*domain.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok || !guard.Matches(req) {
		return nil, repository.ErrStaleState
	}
	req.Status = change.Status
	if change.AssignedTo != nil {
		req.AssignedTo = cloneString(change.AssignedTo)
	}
	if change.Duration != nil {
		d := *change.Duration
		req.Duration = &d
	}
	req.UpdatedAt = r.s.now()
	return req.Clone(), nil
}

func (r *requestRepo) List(_ context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.s.filterRequests(filter)
	r.s.sortNewestFirst(matched)
	return paginate(matched, filter.Limit, filter.Offset), nil
}

func (r *requestRepo) Count(_ context.Context, filter repository.RequestFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.filterRequests(filter)), nil
}

func (r *requestRepo) FindOpenPredictive(_ context.Context, equipmentID string) (*domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found []domain.Request
	for _, req := range r.s.requests {
		if req.EquipmentID == equipmentID && req.Type == domain.RequestTypePredictive && req.Status != domain.RequestStatusRepaired {
			found = append(found, *req.Clone())
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	r.s.sortNewestFirst(found)
	return &found[0], nil
}

func (r *requestRepo) TechnicianLoads(_ context.Context) ([]repository.TechnicianLoad, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []repository.TechnicianLoad
	for _, u := range r.s.users {
		if u.Role != domain.RoleTechnician {
			continue
		}
		load := repository.TechnicianLoad{
			UserID: u.ID,
			Name:   u.Name,
			Email:  u.Email,
			TeamID: cloneString(u.TeamID),
		}
		if u.TeamID != nil {
			if t, ok := r.s.teams[*u.TeamID]; ok {
				name := t.Name
				load.TeamName = &name
			}
		}
		var total float64
		var withDuration int
		for _, req := range r.s.requests {
			if req.AssignedTo == nil || *req.AssignedTo != u.ID {
				continue
			}
			switch req.Status {
			case domain.RequestStatusNew:
				load.OpenJobs++
			case domain.RequestStatusInProgress:
				load.OpenJobs++
				load.InProgressJobs++
			case domain.RequestStatusRepaired:
				load.RepairedJobs++
				if req.Duration != nil && *req.Duration > 0 {
					total += *req.Duration
					withDuration++
				}
			}
		}
		if withDuration > 0 {
			avg := total / float64(withDuration)
			load.AvgRepairHours = &avg
		}
		out = append(out, load)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InProgressJobs != out[j].InProgressJobs {
			return out[i].InProgressJobs > out[j].InProgressJobs
		}
		if out[i].OpenJobs != out[j].OpenJobs {
			return out[i].OpenJobs > out[j].OpenJobs
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// caller must hold mu
func (s *Store) filterRequests(f repository.RequestFilter) []domain.Request {
	subject := strings.ToLower(strings.TrimSpace(f.Subject))
	var out []domain.Request
	for _, req := range s.requests {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, req.Status) {
			continue
		}
		if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, req.Priority) {
			continue
		}
		if f.Type != nil && req.Type != *f.Type {
			continue
		}
		if f.TeamID != nil && req.TeamID != *f.TeamID {
			continue
		}
		if f.AssignedTo != nil && (req.AssignedTo == nil || *req.AssignedTo != *f.AssignedTo) {
			continue
		}
		if f.EquipmentID != nil && req.EquipmentID != *f.EquipmentID {
			continue
		}
		if subject != "" && !strings.Contains(strings.ToLower(req.Subject), subject) {
			continue
		}
		out = append(out, *req.Clone())
	}
	return out
}

// caller must hold mu. Ties on CreatedAt fall back to insertion order.
func (s *Store) sortNewestFirst(reqs []domain.Request) {
	sort.Slice(reqs, func(i, j int) bool {
		a, b := reqs[i], reqs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return s.created[a.ID] > s.created[b.ID]
	})
}
