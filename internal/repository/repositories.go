package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/gearguard/internal/persistence"
)

// TxRunner executes fn atomically. Repositories called with the ctx passed to
// fn take part in the same unit of work.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories groups every store the services depend on.
type Repositories struct {
	Teams       TeamRepository
	Users       UserRepository
	Equipment   EquipmentRepository
	Requests    RequestRepository
	History     RequestHistoryRepository
	Predictions PredictionRepository
	SensorLogs  SensorLogRepository
	Tx          TxRunner
}

// NewPostgres wires Postgres-backed repositories over pool.
func NewPostgres(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Teams:       NewTeamRepository(pool),
		Users:       NewUserRepository(pool),
		Equipment:   NewEquipmentRepository(pool),
		Requests:    NewRequestRepository(pool),
		History:     NewRequestHistoryRepository(pool),
		Predictions: NewPredictionRepository(pool),
		SensorLogs:  NewSensorLogRepository(pool),
		Tx:          persistence.NewTxManager(pool),
	}
}
