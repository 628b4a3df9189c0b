package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

// FailureWindow is how soon after a sample a corrective request must open
// for the sample to be labelled as failed.
const FailureWindow = time.Hour

const (
	requestsSheet = "Requests"
	datasetSheet  = "Dataset"
)

var requestExportHeaders = []any{
	"ID", "Subject", "Type", "Priority", "Status", "Equipment ID", "Team ID",
	"Assigned To", "Scheduled Date", "Duration (h)", "AI Explanation", "Created At",
}

// DatasetHeaders is the column order of the training dataset.
var DatasetHeaders = []string{"equipment", "temperature", "vibration", "power", "runtime", "failed"}

// DatasetRow is one labelled sensor sample.
type DatasetRow struct {
	EquipmentID string
	Temperature float64
	Vibration   float64
	Power       float64
	Runtime     float64
	Failed      bool
}

// ExportService renders listings and datasets as files.
type ExportService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(repos *repository.Repositories, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{repos: repos, logger: logger.Named("export")}
}

// ExportRequests writes the filtered admin listing as an XLSX workbook.
// Paging in input is ignored; every matching request is exported.
func (s *ExportService) ExportRequests(ctx context.Context, caller domain.Caller, input ListRequestsInput, w io.Writer) (int, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	items, err := s.repos.Requests.List(ctx, repository.RequestFilter{
		Statuses:    input.Statuses,
		Priorities:  input.Priorities,
		Type:        input.Type,
		TeamID:      input.TeamID,
		AssignedTo:  input.AssignedTo,
		EquipmentID: input.EquipmentID,
		Subject:     input.Query,
	})
	if err != nil {
		return 0, util.MapError(err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", requestsSheet); err != nil {
		return 0, util.NewInternalError(err)
	}
	if err := f.SetSheetRow(requestsSheet, "A1", &requestExportHeaders); err != nil {
		return 0, util.NewInternalError(err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(requestsSheet, "A1", "L1", style)
	}
	for i, r := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, util.NewInternalError(err)
		}
		row := requestExportRow(r)
		if err := f.SetSheetRow(requestsSheet, cell, &row); err != nil {
			return 0, util.NewInternalError(err)
		}
	}
	_ = f.SetColWidth(requestsSheet, "A", "A", 38)
	_ = f.SetColWidth(requestsSheet, "B", "B", 30)
	_ = f.SetColWidth(requestsSheet, "F", "H", 38)
	_ = f.SetColWidth(requestsSheet, "K", "K", 60)

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("requests exported", zap.Int("rows", len(items)))
	return len(items), nil
}

func requestExportRow(r domain.Request) []any {
	return []any{
		r.ID,
		r.Subject,
		string(r.Type),
		string(r.Priority),
		string(r.Status),
		r.EquipmentID,
		r.TeamID,
		derefString(r.AssignedTo),
		formatDatePtr(r.ScheduledDate),
		derefFloat(r.Duration),
		derefString(r.AIExplanation),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// BuildDataset labels every sensor sample with whether a corrective request
// for the same equipment opened within FailureWindow after it.
func (s *ExportService) BuildDataset(ctx context.Context) ([]DatasetRow, error) {
	logs, err := s.repos.SensorLogs.ListAll(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	corrective := domain.RequestTypeCorrective
	failures, err := s.repos.Requests.List(ctx, repository.RequestFilter{Type: &corrective})
	if err != nil {
		return nil, util.MapError(err)
	}

	byEquipment := make(map[string][]time.Time)
	for _, f := range failures {
		byEquipment[f.EquipmentID] = append(byEquipment[f.EquipmentID], f.CreatedAt)
	}

	rows := make([]DatasetRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, DatasetRow{
			EquipmentID: l.EquipmentID,
			Temperature: l.Temperature,
			Vibration:   l.Vibration,
			Power:       l.PowerUsage,
			Runtime:     l.RuntimeHours,
			Failed:      failedWithin(l.Timestamp, byEquipment[l.EquipmentID]),
		})
	}
	return rows, nil
}

func failedWithin(at time.Time, failures []time.Time) bool {
	for _, f := range failures {
		if d := f.Sub(at); d > 0 && d < FailureWindow {
			return true
		}
	}
	return false
}

// WriteDatasetCSV writes rows with a header line.
func WriteDatasetCSV(w io.Writer, rows []DatasetRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DatasetHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		failed := "0"
		if r.Failed {
			failed = "1"
		}
		record := []string{
			r.EquipmentID,
			strconv.FormatFloat(r.Temperature, 'f', -1, 64),
			strconv.FormatFloat(r.Vibration, 'f', -1, 64),
			strconv.FormatFloat(r.Power, 'f', -1, 64),
			strconv.FormatFloat(r.Runtime, 'f', -1, 64),
			failed,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDatasetXLSX writes rows into a single-sheet workbook.
func WriteDatasetXLSX(w io.Writer, rows []DatasetRow) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", datasetSheet); err != nil {
		return err
	}
	headers := make([]any, len(DatasetHeaders))
	for i, h := range DatasetHeaders {
		headers[i] = h
	}
	if err := f.SetSheetRow(datasetSheet, "A1", &headers); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		failed := 0
		if r.Failed {
			failed = 1
		}
		row := []any{r.EquipmentID, r.Temperature, r.Vibration, r.Power, r.Runtime, failed}
		if err := f.SetSheetRow(datasetSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
