// Package memory implements the repository interfaces in process memory.
// It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
)

// Store holds every table. Reads and writes take mu; RunInTx additionally
// serializes whole units of work on txMu.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	teams       map[string]*domain.Team
	users       map[string]*domain.User
	equipment   map[string]*domain.Equipment
	requests    map[string]*domain.Request
	history     []domain.RequestHistory
	predictions []domain.Prediction
	sensorLogs  []domain.SensorLog

	// seq breaks created_at ties so ordering is stable.
	seq     int64
	created map[string]int64

	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		teams:     map[string]*domain.Team{},
		users:     map[string]*domain.User{},
		equipment: map[string]*domain.Equipment{},
		requests:  map[string]*domain.Request{},
		created:   map[string]int64{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Teams:       &teamRepo{s},
		Users:       &userRepo{s},
		Equipment:   &equipmentRepo{s},
		Requests:    &requestRepo{s},
		History:     &historyRepo{s},
		Predictions: &predictionRepo{s},
		SensorLogs:  &sensorLogRepo{s},
		Tx:          s,
	}
}

type txKey struct{}

// RunInTx serializes fn against other units of work. Writes are not rolled
// back on error, so callers validate before writing.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

// caller must hold mu
func (s *Store) nextID() (string, int64) {
	s.seq++
	return uuid.NewString(), s.seq
}
