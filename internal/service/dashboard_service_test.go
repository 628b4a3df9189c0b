package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/risk"
	"github.com/spec-kit/gearguard/pkg/util"
)

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "Mechanics")
	tech := f.technician(t, team)
	scores := []float64{0, 30, 60, 80, 95}
	var machines []*domain.Equipment
	for _, s := range scores {
		eq := f.machine(t, team)
		require.NoError(t, f.repos.Equipment.UpdateRiskScore(f.ctx, eq.ID, s))
		machines = append(machines, eq)
	}

	closed := f.request(t, machines[0], domain.RequestTypeCorrective)
	_, err := f.requests.AssignToSelf(f.ctx, tech, closed.ID)
	require.NoError(t, err)
	_, err = f.requests.Close(f.ctx, tech, closed.ID, 3)
	require.NoError(t, err)
	working := f.request(t, machines[1], domain.RequestTypeCorrective)
	_, err = f.requests.AssignToSelf(f.ctx, tech, working.ID)
	require.NoError(t, err)
	f.request(t, machines[2], domain.RequestTypeCorrective)

	svc := NewDashboardService(f.repos, zap.NewNop())
	_, err = svc.Get(f.ctx, tech)
	requireDomainError(t, err, util.CodeForbidden, "Admin access required")

	d, err := svc.Get(f.ctx, f.admin)
	require.NoError(t, err)

	assert.Equal(t, map[risk.Level]int{
		risk.LevelLow:      1,
		risk.LevelMedium:   1,
		risk.LevelHigh:     1,
		risk.LevelCritical: 2,
	}, d.RiskDistribution)
	assert.Equal(t, 2, d.CriticalEquipmentCount)
	require.Len(t, d.TopRiskEquipment, 5)
	assert.Equal(t, 95.0, d.TopRiskEquipment[0].RiskScore)
	assert.Len(t, d.LatestRequests, 3)

	require.Len(t, d.Teams, 1)
	assert.Equal(t, 1, d.Teams[0].MemberCount)
	assert.Equal(t, 2, d.Teams[0].OpenTickets)

	require.Len(t, d.TechnicianUtilization, 1)
	load := d.TechnicianUtilization[0]
	assert.Equal(t, tech.ID, load.UserID)
	assert.Equal(t, 1, load.OpenJobs)
	assert.Equal(t, 1, load.InProgressJobs)
	assert.Equal(t, 1, load.RepairedJobs)
	require.NotNil(t, load.AvgRepairHours)
	assert.Equal(t, 3.0, *load.AvgRepairHours)
}

func TestDashboard_EmptyStoreHasEveryBucket(t *testing.T) {
	f := newFixture(t)
	d, err := NewDashboardService(f.repos, nil).Get(f.ctx, f.admin)
	require.NoError(t, err)
	for _, level := range risk.Levels {
		assert.Contains(t, d.RiskDistribution, level)
	}
	assert.Zero(t, d.CriticalEquipmentCount)
}

func TestSensorService(t *testing.T) {
	f := newFixture(t)
	eq := f.machine(t, f.team(t, "Mechanics"))
	svc := NewSensorService(f.repos, zap.NewNop())

	_, err := svc.Record(f.ctx, RecordSensorInput{EquipmentID: "ghost", Temperature: 40})
	requireDomainError(t, err, util.CodeNotFound, "Equipment not found")

	_, err = svc.Record(f.ctx, RecordSensorInput{Temperature: 40})
	requireDomainError(t, err, util.CodeValidation, "equipment is required")

	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < SensorHistoryLimit+5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := svc.Record(f.ctx, RecordSensorInput{EquipmentID: eq.ID, Temperature: float64(i), Timestamp: &at})
		require.NoError(t, err)
	}

	logs, err := svc.ListForEquipment(f.ctx, eq.ID)
	require.NoError(t, err)
	require.Len(t, logs, SensorHistoryLimit)
	assert.Equal(t, float64(SensorHistoryLimit+4), logs[0].Temperature, "newest first")

	logs, err = svc.ListForEquipment(f.ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

func TestExportRequests_XLSX(t *testing.T) {
	f := newFixture(t)
	eq := f.machine(t, f.team(t, "Mechanics"))
	f.request(t, eq, domain.RequestTypeCorrective)
	f.request(t, eq, domain.RequestTypePreventive)
	svc := NewExportService(f.repos, zap.NewNop())

	var buf bytes.Buffer
	_, err := svc.ExportRequests(f.ctx, f.caller(t, domain.RoleEmployee, nil), ListRequestsInput{}, &buf)
	requireDomainError(t, err, util.CodeForbidden, "")

	corrective := domain.RequestTypeCorrective
	n, err := svc.ExportRequests(f.ctx, f.admin, ListRequestsInput{Type: &corrective}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(requestsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Subject", rows[0][1])
	assert.Equal(t, "Leaking oil", rows[1][1])
	assert.Equal(t, "corrective", rows[1][2])
}

func TestBuildDataset_LabelsFailuresWithinAnHour(t *testing.T) {
	f := newFixture(t)
	eq := f.machine(t, f.team(t, "Mechanics"))
	other := f.machine(t, f.team(t, "Electric"))
	failure := f.request(t, eq, domain.RequestTypeCorrective)
	failedAt := failure.CreatedAt

	sensors := NewSensorService(f.repos, nil)
	record := func(id string, at time.Time) {
		_, err := sensors.Record(f.ctx, RecordSensorInput{EquipmentID: id, Temperature: 70, Vibration: 5, Timestamp: &at})
		require.NoError(t, err)
	}
	record(eq.ID, failedAt.Add(-30*time.Minute))
	record(eq.ID, failedAt.Add(-2*time.Hour))
	record(eq.ID, failedAt.Add(10*time.Minute))
	record(other.ID, failedAt.Add(-30*time.Minute))

	svc := NewExportService(f.repos, nil)
	rows, err := svc.BuildDataset(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	failed := map[bool]int{}
	for _, r := range rows {
		failed[r.Failed]++
		if r.Failed {
			assert.Equal(t, eq.ID, r.EquipmentID)
		}
	}
	assert.Equal(t, 1, failed[true])

	var csvOut bytes.Buffer
	require.NoError(t, WriteDatasetCSV(&csvOut, rows))
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "equipment,temperature,vibration,power,runtime,failed", lines[0])

	var xlsxOut bytes.Buffer
	require.NoError(t, WriteDatasetXLSX(&xlsxOut, rows))
	book, err := excelize.OpenReader(&xlsxOut)
	require.NoError(t, err)
	defer book.Close()
	sheetRows, err := book.GetRows(datasetSheet)
	require.NoError(t, err)
	assert.Len(t, sheetRows, 5)
}
