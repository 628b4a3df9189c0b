package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
)

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(_ context.Context, h *domain.RequestHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[h.RequestID]; !ok {
		return repository.ErrNotFound
	}
	h.ID, _ = r.s.nextID()
	h.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r *historyRepo) ListByRequest(_ context.Context, requestID string) ([]domain.RequestHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.RequestHistory
	for _, h := range r.s.history {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	return out, nil
}

type predictionRepo struct{ s *Store }

func (r *predictionRepo) Create(_ context.Context, p *domain.Prediction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.equipment[p.EquipmentID]; !ok {
		return repository.ErrNotFound
	}
	p.ID, _ = r.s.nextID()
	p.CreatedAt = r.s.now()
	r.s.predictions = append(r.s.predictions, *p)
	return nil
}

func (r *predictionRepo) Latest(_ context.Context, limit int) ([]domain.Prediction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Prediction, 0, len(r.s.predictions))
	for i := len(r.s.predictions) - 1; i >= 0; i-- {
		out = append(out, r.s.predictions[i])
	}
	return paginate(out, limit, 0), nil
}

type sensorLogRepo struct{ s *Store }

func (r *sensorLogRepo) Create(_ context.Context, log *domain.SensorLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.equipment[log.EquipmentID]; !ok {
		return repository.ErrNotFound
	}
	log.ID, _ = r.s.nextID()
	if log.Timestamp.IsZero() {
		log.Timestamp = r.s.now()
	}
	r.s.sensorLogs = append(r.s.sensorLogs, *log)
	return nil
}

func (r *sensorLogRepo) ListByEquipment(_ context.Context, equipmentID string, limit int) ([]domain.SensorLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.SensorLog
	for i := len(r.s.sensorLogs) - 1; i >= 0; i-- {
		if l := r.s.sensorLogs[i]; l.EquipmentID == equipmentID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return paginate(out, limit, 0), nil
}

func (r *sensorLogRepo) ListAll(_ context.Context) ([]domain.SensorLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := append([]domain.SensorLog(nil), r.s.sensorLogs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
