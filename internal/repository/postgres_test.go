package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/persistence"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres repository tests need docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	containerOnce.Do(func() {
		containerDSN, containerErr = startPostgres()
	})
	require.NoError(t, containerErr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, containerDSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE sensor_logs, predictions, request_history, requests, equipment, users, teams CASCADE`)
	require.NoError(t, err)
	return pool
}

func startPostgres() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "gearguard",
				"POSTGRES_PASSWORD": "gearguard",
				"POSTGRES_DB":       "gearguard",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("mapped port: %w", err)
	}
	dsn := fmt.Sprintf("postgres://gearguard:gearguard@%s:%s/gearguard?sslmode=disable", host, port.Port())

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return "", fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	if err := persistence.ApplyMigrations(ctx, db, zap.NewNop()); err != nil {
		return "", err
	}
	return dsn, nil
}

func seedPostgres(t *testing.T, repos *Repositories) (*domain.Team, *domain.Equipment, *domain.User) {
	t.Helper()
	ctx := context.Background()

	team := &domain.Team{Name: "Mechanics"}
	require.NoError(t, repos.Teams.Create(ctx, team))

	eq := &domain.Equipment{Name: "Press", SerialNumber: "SN-1", Department: "Stamping", TeamID: team.ID, Status: domain.EquipmentStatusActive}
	require.NoError(t, repos.Equipment.Create(ctx, eq))

	tech := &domain.User{Name: "Tess", Email: "tess@plant.io", PasswordHash: "x", Role: domain.RoleTechnician, TeamID: &team.ID}
	require.NoError(t, repos.Users.Create(ctx, tech))
	return team, eq, tech
}

func TestPostgres_RequestLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := NewPostgres(setupTestDB(t))
	team, eq, tech := seedPostgres(t, repos)

	req := &domain.Request{
		Subject:     "Hydraulic leak",
		Type:        domain.RequestTypeCorrective,
		Priority:    domain.RequestPriorityHigh,
		EquipmentID: eq.ID,
		TeamID:      team.ID,
		Status:      domain.RequestStatusNew,
	}
	require.NoError(t, repos.Requests.Create(ctx, req))

	claimed, err := repos.Requests.Transition(ctx, req.ID,
		TransitionGuard{Status: domain.RequestStatusNew},
		TransitionChange{Status: domain.RequestStatusInProgress, AssignedTo: &tech.ID})
	require.NoError(t, err)
	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, tech.ID, *claimed.AssignedTo)

	_, err = repos.Requests.Transition(ctx, req.ID,
		TransitionGuard{Status: domain.RequestStatusNew},
		TransitionChange{Status: domain.RequestStatusInProgress, AssignedTo: &tech.ID})
	assert.ErrorIs(t, err, ErrStaleState)

	duration := 2.5
	closed, err := repos.Requests.Transition(ctx, req.ID,
		TransitionGuard{Status: domain.RequestStatusInProgress, MatchAssignee: true, AssignedTo: &tech.ID},
		TransitionChange{Status: domain.RequestStatusRepaired, Duration: &duration})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRepaired, closed.Status)
	require.NotNil(t, closed.Duration)
	assert.Equal(t, 2.5, *closed.Duration)

	loads, err := repos.Requests.TechnicianLoads(ctx)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, 1, loads[0].RepairedJobs)
	require.NotNil(t, loads[0].AvgRepairHours)
	assert.InDelta(t, 2.5, *loads[0].AvgRepairHours, 1e-9)
}

func TestPostgres_ListFilters(t *testing.T) {
	ctx := context.Background()
	repos := NewPostgres(setupTestDB(t))
	team, eq, _ := seedPostgres(t, repos)

	for _, subject := range []string{"Pump leak", "Belt noise", "100% load_test"} {
		require.NoError(t, repos.Requests.Create(ctx, &domain.Request{
			Subject: subject, Type: domain.RequestTypeCorrective, Priority: domain.RequestPriorityMedium,
			EquipmentID: eq.ID, TeamID: team.ID, Status: domain.RequestStatusNew,
		}))
	}

	got, err := repos.Requests.List(ctx, RequestFilter{Subject: "LEAK"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = repos.Requests.List(ctx, RequestFilter{Subject: "0% l"})
	require.NoError(t, err)
	require.Len(t, got, 1, "like wildcards in the query are literal")

	n, err := repos.Requests.Count(ctx, RequestFilter{
		Statuses:   []domain.RequestStatus{domain.RequestStatusNew, domain.RequestStatusRepaired},
		Priorities: []domain.RequestPriority{domain.RequestPriorityMedium},
		TeamID:     &team.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPostgres_UsersAndTeams(t *testing.T) {
	ctx := context.Background()
	repos := NewPostgres(setupTestDB(t))
	team, _, tech := seedPostgres(t, repos)

	err := repos.Users.Create(ctx, &domain.User{Name: "Dup", Email: "tess@plant.io", PasswordHash: "x", Role: domain.RoleEmployee})
	assert.ErrorIs(t, err, ErrDuplicate)

	u, err := repos.Users.GetByEmail(ctx, "TESS@plant.io")
	require.NoError(t, err)
	assert.Equal(t, tech.ID, u.ID)

	summaries, err := repos.Teams.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].MemberCount)

	require.NoError(t, repos.Users.SetTeam(ctx, tech.ID, nil))
	members, err := repos.Users.List(ctx, UserFilter{TeamID: &team.ID})
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = repos.Teams.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_TxRollback(t *testing.T) {
	ctx := context.Background()
	repos := NewPostgres(setupTestDB(t))
	team, _, tech := seedPostgres(t, repos)

	err := repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := repos.Users.SetTeam(ctx, tech.ID, nil); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	u, err := repos.Users.GetByID(ctx, tech.ID)
	require.NoError(t, err)
	require.NotNil(t, u.TeamID)
	assert.Equal(t, team.ID, *u.TeamID)
}
