package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/events"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/internal/repository/memory"
	"github.com/spec-kit/gearguard/pkg/util"
)

var testAuthConfig = config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx        context.Context
	repos      *repository.Repositories
	dispatcher events.Dispatcher
	recorded   *recordedEvents
	requests   *RequestService
	membership *MembershipService
	users      *UserService
	equipment  *EquipmentService
	admin      domain.Caller
	seq        atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewStore().Repositories()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	recorded := &recordedEvents{}
	for _, typ := range []events.EventType{
		events.EventRequestCreated,
		events.EventRequestAssigned,
		events.EventRequestReassigned,
		events.EventRequestClosed,
		events.EventPredictionRecorded,
	} {
		dispatcher.Subscribe(typ, recorded.handler)
	}

	membership := NewMembershipService(repos, zap.NewNop())
	f := &fixture{
		ctx:        context.Background(),
		repos:      repos,
		dispatcher: dispatcher,
		recorded:   recorded,
		requests:   NewRequestService(RequestDependencies{Repos: repos, Dispatcher: dispatcher, Logger: zap.NewNop()}),
		membership: membership,
		users:      NewUserService(testAuthConfig, repos, membership, zap.NewNop()),
		equipment:  NewEquipmentService(repos, zap.NewNop()),
	}
	f.admin = f.caller(t, domain.RoleAdmin, nil)
	return f
}

func (f *fixture) team(t *testing.T, name string) *domain.Team {
	t.Helper()
	team, err := f.membership.CreateTeam(f.ctx, f.admin, name)
	require.NoError(t, err)
	return team
}

// caller stores a user and returns the caller built from its row.
func (f *fixture) caller(t *testing.T, role domain.Role, teamID *string) domain.Caller {
	t.Helper()
	n := f.seq.Add(1)
	user := &domain.User{
		Name:         fmt.Sprintf("%s %d", role, n),
		Email:        fmt.Sprintf("%s%d@example.com", role, n),
		PasswordHash: "unused",
		Role:         role,
		TeamID:       teamID,
	}
	require.NoError(t, f.repos.Users.Create(f.ctx, user))
	return domain.CallerFromUser(user)
}

func (f *fixture) technician(t *testing.T, team *domain.Team) domain.Caller {
	t.Helper()
	id := team.ID
	return f.caller(t, domain.RoleTechnician, &id)
}

func (f *fixture) machine(t *testing.T, team *domain.Team) *domain.Equipment {
	t.Helper()
	n := f.seq.Add(1)
	eq, err := f.equipment.Create(f.ctx, f.admin, CreateEquipmentInput{
		Name:         fmt.Sprintf("Machine %d", n),
		SerialNumber: fmt.Sprintf("SN-%d", n),
		Department:   "Production",
		TeamID:       team.ID,
	})
	require.NoError(t, err)
	return eq
}

func (f *fixture) request(t *testing.T, eq *domain.Equipment, typ domain.RequestType) *domain.Request {
	t.Helper()
	req, err := f.requests.Create(f.ctx, f.admin, CreateRequestInput{
		Subject:     "Leaking oil",
		Type:        typ,
		EquipmentID: eq.ID,
	})
	require.NoError(t, err)
	return req
}

func requireDomainError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	var de *util.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T: %v", err, err)
	assert.Equal(t, code, de.Code)
	if message != "" {
		assert.Equal(t, message, de.Message)
	}
}
