package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/events"
	"github.com/spec-kit/gearguard/pkg/util"
)

func TestCreate_RoutesToEquipmentTeam(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	eq := f.machine(t, team)
	employee := f.caller(t, domain.RoleEmployee, nil)

	req, err := f.requests.Create(f.ctx, employee, CreateRequestInput{
		Subject:     "  Strange noise ",
		Type:        domain.RequestTypeCorrective,
		EquipmentID: eq.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RequestStatusNew, req.Status)
	assert.Equal(t, team.ID, req.TeamID)
	assert.Equal(t, "Strange noise", req.Subject)
	assert.Equal(t, domain.RequestPriorityMedium, req.Priority)
	assert.Nil(t, req.AssignedTo)
	require.NotNil(t, req.CreatedBy)
	assert.Equal(t, employee.ID, *req.CreatedBy)

	history, err := f.requests.History(f.ctx, employee, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeTypeCreated, history[0].ChangeType)
	assert.Equal(t, []events.EventType{events.EventRequestCreated}, f.recorded.types())
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	eq := f.machine(t, f.team(t, "Mechanics"))

	tests := []struct {
		name  string
		input CreateRequestInput
		code  string
	}{
		{"missing equipment", CreateRequestInput{Subject: "x", Type: domain.RequestTypeCorrective}, util.CodeValidation},
		{"unknown equipment", CreateRequestInput{Subject: "x", Type: domain.RequestTypeCorrective, EquipmentID: "nope"}, util.CodeNotFound},
		{"blank subject", CreateRequestInput{Subject: "  ", Type: domain.RequestTypeCorrective, EquipmentID: eq.ID}, util.CodeValidation},
		{"bad type", CreateRequestInput{Subject: "x", Type: "urgent", EquipmentID: eq.ID}, util.CodeValidation},
		{"bad priority", CreateRequestInput{Subject: "x", Type: domain.RequestTypeCorrective, EquipmentID: eq.ID, Priority: "critical"}, util.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.requests.Create(f.ctx, f.admin, tt.input)
			requireDomainError(t, err, tt.code, "")
		})
	}
}

func TestAssignToSelf_SecondTechnicianSeesAlreadyAssigned(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	req := f.request(t, f.machine(t, team), domain.RequestTypeCorrective)
	x := f.technician(t, team)
	y := f.technician(t, team)

	got, err := f.requests.AssignToSelf(f.ctx, x, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusInProgress, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, x.ID, *got.AssignedTo)

	_, err = f.requests.AssignToSelf(f.ctx, y, req.ID)
	requireDomainError(t, err, util.CodeInvalidState, "Already assigned")
}

func TestAssignToSelf_Preconditions(t *testing.T) {
	f := newFixture(t)
	teamA := f.team(t, "A")
	teamB := f.team(t, "B")
	req := f.request(t, f.machine(t, teamA), domain.RequestTypeCorrective)

	_, err := f.requests.AssignToSelf(f.ctx, f.caller(t, domain.RoleEmployee, nil), req.ID)
	requireDomainError(t, err, util.CodeForbidden, "Only technicians can take jobs")

	_, err = f.requests.AssignToSelf(f.ctx, f.technician(t, teamB), req.ID)
	requireDomainError(t, err, util.CodeForbidden, "You are not in this team")

	_, err = f.requests.AssignToSelf(f.ctx, f.caller(t, domain.RoleTechnician, nil), req.ID)
	requireDomainError(t, err, util.CodeForbidden, "You are not in this team")

	_, err = f.requests.AssignToSelf(f.ctx, f.technician(t, teamA), "missing")
	requireDomainError(t, err, util.CodeNotFound, "Request not found")
}

func TestAssignToSelf_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	req := f.request(t, f.machine(t, team), domain.RequestTypeCorrective)

	const n = 12
	techs := make([]domain.Caller, n)
	for i := range techs {
		techs[i] = f.technician(t, team)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  []error
	)
	start := make(chan struct{})
	for _, tech := range techs {
		wg.Add(1)
		go func(c domain.Caller) {
			defer wg.Done()
			<-start
			_, err := f.requests.AssignToSelf(f.ctx, c, req.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, c.ID)
				return
			}
			losers = append(losers, err)
		}(tech)
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, losers, n-1)
	for _, err := range losers {
		requireDomainError(t, err, util.CodeInvalidState, "Already assigned")
	}

	stored, err := f.requests.Get(f.ctx, f.admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], *stored.AssignedTo)

	history, err := f.requests.History(f.ctx, f.admin, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "one CREATED and exactly one ASSIGNED entry")
}

func TestClose_Lifecycle(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	req := f.request(t, f.machine(t, team), domain.RequestTypeCorrective)
	tech := f.technician(t, team)

	_, err := f.requests.Close(f.ctx, f.admin, req.ID, 2.5)
	requireDomainError(t, err, util.CodeInvalidState, "Only in-progress requests can be closed")

	_, err = f.requests.AssignToSelf(f.ctx, tech, req.ID)
	require.NoError(t, err)

	_, err = f.requests.Close(f.ctx, tech, req.ID, 0)
	requireDomainError(t, err, util.CodeValidation, "duration must be a positive number (hours)")

	closed, err := f.requests.Close(f.ctx, f.admin, req.ID, 2.5)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRepaired, closed.Status)
	require.NotNil(t, closed.Duration)
	assert.Equal(t, 2.5, *closed.Duration)

	_, err = f.requests.Close(f.ctx, f.admin, req.ID, 1)
	requireDomainError(t, err, util.CodeInvalidState, "Only in-progress requests can be closed")

	history, err := f.requests.History(f.ctx, f.admin, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.ChangeTypeClosed, history[2].ChangeType)
}

func TestClose_EmployeeAlwaysForbidden(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	tech := f.technician(t, team)
	employee := f.caller(t, domain.RoleEmployee, nil)

	fresh := f.request(t, f.machine(t, team), domain.RequestTypeCorrective)
	_, err := f.requests.Close(f.ctx, employee, fresh.ID, 1.0)
	requireDomainError(t, err, util.CodeForbidden, "")

	started := f.request(t, f.machine(t, team), domain.RequestTypeCorrective)
	_, err = f.requests.AssignToSelf(f.ctx, tech, started.ID)
	require.NoError(t, err)
	_, err = f.requests.Close(f.ctx, employee, started.ID, 1.0)
	requireDomainError(t, err, util.CodeForbidden, "")
}

func TestClose_OnlyAssigneeAmongTechnicians(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	req := f.request(t, f.machine(t, team), domain.RequestTypeCorrective)
	owner := f.technician(t, team)
	other := f.technician(t, team)

	_, err := f.requests.AssignToSelf(f.ctx, owner, req.ID)
	require.NoError(t, err)

	_, err = f.requests.Close(f.ctx, other, req.ID, 1)
	requireDomainError(t, err, util.CodeForbidden, "Only the assigned technician can close this request")

	_, err = f.requests.Close(f.ctx, owner, req.ID, 1)
	require.NoError(t, err)
}

func TestAdminAssignAndReassign(t *testing.T) {
	f := newFixture(t)
	teamA := f.team(t, "A")
	teamB := f.team(t, "B")
	req := f.request(t, f.machine(t, teamA), domain.RequestTypeCorrective)
	first := f.technician(t, teamA)
	second := f.technician(t, teamA)
	outsider := f.technician(t, teamB)
	employee := f.caller(t, domain.RoleEmployee, nil)

	_, err := f.requests.AssignToTechnician(f.ctx, first, req.ID, first.ID)
	requireDomainError(t, err, util.CodeForbidden, "Admin access required")

	_, err = f.requests.AssignToTechnician(f.ctx, f.admin, req.ID, " ")
	requireDomainError(t, err, util.CodeValidation, "technicianId is required")

	_, err = f.requests.Reassign(f.ctx, f.admin, req.ID, second.ID)
	requireDomainError(t, err, util.CodeInvalidState, "Only in-progress requests can be reassigned")

	_, err = f.requests.AssignToTechnician(f.ctx, f.admin, req.ID, "ghost")
	requireDomainError(t, err, util.CodeNotFound, "Technician not found")

	_, err = f.requests.AssignToTechnician(f.ctx, f.admin, req.ID, employee.ID)
	requireDomainError(t, err, util.CodeValidation, "Selected user is not a technician")

	_, err = f.requests.AssignToTechnician(f.ctx, f.admin, req.ID, outsider.ID)
	requireDomainError(t, err, util.CodeValidation, "Technician must belong to the request team")

	assigned, err := f.requests.AssignToTechnician(f.ctx, f.admin, req.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusInProgress, assigned.Status)
	assert.Equal(t, first.ID, *assigned.AssignedTo)

	_, err = f.requests.AssignToTechnician(f.ctx, f.admin, req.ID, second.ID)
	requireDomainError(t, err, util.CodeInvalidState, "Only new requests can be assigned")

	moved, err := f.requests.Reassign(f.ctx, f.admin, req.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusInProgress, moved.Status)
	assert.Equal(t, second.ID, *moved.AssignedTo)

	history, err := f.requests.History(f.ctx, f.admin, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.ChangeTypeReassigned, history[2].ChangeType)

	assert.Equal(t, []events.EventType{
		events.EventRequestCreated,
		events.EventRequestAssigned,
		events.EventRequestReassigned,
	}, f.recorded.types())
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	teamA := f.team(t, "A")
	teamB := f.team(t, "B")
	reqA := f.request(t, f.machine(t, teamA), domain.RequestTypeCorrective)
	reqB := f.request(t, f.machine(t, teamB), domain.RequestTypeCorrective)
	techA := f.technician(t, teamA)
	loner := f.caller(t, domain.RoleTechnician, nil)
	employee := f.caller(t, domain.RoleEmployee, nil)

	_, err := f.requests.Get(f.ctx, techA, reqB.ID)
	requireDomainError(t, err, util.CodeForbidden, "You are not in this team")
	got, err := f.requests.Get(f.ctx, techA, reqA.ID)
	require.NoError(t, err)
	assert.Equal(t, reqA.ID, got.ID)

	board, err := f.requests.Kanban(f.ctx, techA)
	require.NoError(t, err)
	assert.Len(t, board[domain.RequestStatusNew], 1)
	for _, st := range domain.RequestStatuses {
		assert.Contains(t, board, st)
	}

	board, err = f.requests.Kanban(f.ctx, loner)
	require.NoError(t, err)
	assert.Empty(t, board[domain.RequestStatusNew])

	board, err = f.requests.Kanban(f.ctx, employee)
	require.NoError(t, err)
	assert.Len(t, board[domain.RequestStatusNew], 2)
}

func TestCalendar_GroupsPreventiveByDay(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	eq := f.machine(t, team)
	day := time.Date(2025, 6, 1, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))

	_, err := f.requests.Create(f.ctx, f.admin, CreateRequestInput{
		Subject: "Oil change", Type: domain.RequestTypePreventive, EquipmentID: eq.ID, ScheduledDate: &day,
	})
	require.NoError(t, err)
	_, err = f.requests.Create(f.ctx, f.admin, CreateRequestInput{
		Subject: "Inspection", Type: domain.RequestTypePreventive, EquipmentID: eq.ID,
	})
	require.NoError(t, err)
	f.request(t, eq, domain.RequestTypeCorrective)

	calendar, err := f.requests.Calendar(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, calendar, 2)
	require.Len(t, calendar["2025-06-02"], 1)
	assert.Equal(t, "Oil change", calendar["2025-06-02"][0].Subject)
	assert.Len(t, calendar[UnscheduledKey], 1)
}

func TestList_AdminFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	eq := f.machine(t, team)
	for i := 0; i < 5; i++ {
		f.request(t, eq, domain.RequestTypeCorrective)
	}
	f.request(t, eq, domain.RequestTypePreventive)

	_, err := f.requests.List(f.ctx, f.technician(t, team), ListRequestsInput{})
	requireDomainError(t, err, util.CodeForbidden, "Admin access required")

	corrective := domain.RequestTypeCorrective
	page, err := f.requests.List(f.ctx, f.admin, ListRequestsInput{Type: &corrective, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 2)

	page, err = f.requests.List(f.ctx, f.admin, ListRequestsInput{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.PageSize)
	assert.Len(t, page.Items, 6)

	page, err = f.requests.List(f.ctx, f.admin, ListRequestsInput{Statuses: []domain.RequestStatus{domain.RequestStatusRepaired}})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Items)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size, wantPage, wantSize int
	}{
		{0, 0, 1, 50},
		{-3, 10, 1, 10},
		{2, -1, 2, 1},
		{4, 500, 4, 200},
	}
	for _, tt := range tests {
		page, size := normalizePage(tt.page, tt.size, defaultRequestPageSize)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantSize, size)
	}
}
