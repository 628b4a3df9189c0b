package dto

import (
	"time"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/internal/risk"
)

// SensorReadingRequest is one telemetry sample.
type SensorReadingRequest struct {
	Equipment    string  `json:"equipment"`
	Temperature  float64 `json:"temperature"`
	Vibration    float64 `json:"vibration" validate:"gte=0"`
	PowerUsage   float64 `json:"powerUsage" validate:"gte=0"`
	RuntimeHours float64 `json:"runtimeHours" validate:"gte=0"`
	Timestamp    *string `json:"timestamp"`
}

// SensorLogResponse is a stored sample.
type SensorLogResponse struct {
	ID           string    `json:"id"`
	Equipment    string    `json:"equipment"`
	Temperature  float64   `json:"temperature"`
	Vibration    float64   `json:"vibration"`
	PowerUsage   float64   `json:"powerUsage"`
	RuntimeHours float64   `json:"runtimeHours"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewSensorLogResponse maps a stored sample.
func NewSensorLogResponse(l *domain.SensorLog) SensorLogResponse {
	return SensorLogResponse{
		ID:           l.ID,
		Equipment:    l.EquipmentID,
		Temperature:  l.Temperature,
		Vibration:    l.Vibration,
		PowerUsage:   l.PowerUsage,
		RuntimeHours: l.RuntimeHours,
		Timestamp:    l.Timestamp,
	}
}

// NewSensorLogList maps samples.
func NewSensorLogList(logs []domain.SensorLog) []SensorLogResponse {
	out := make([]SensorLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, NewSensorLogResponse(&logs[i]))
	}
	return out
}

// PredictionResponse is a recorded scan result.
type PredictionResponse struct {
	ID          string                 `json:"id"`
	Equipment   string                 `json:"equipment"`
	Temperature float64                `json:"temperature"`
	Vibration   float64                `json:"vibration"`
	Power       float64                `json:"power"`
	Runtime     float64                `json:"runtime"`
	Anomaly     bool                   `json:"anomaly"`
	RiskScore   float64                `json:"riskScore"`
	Priority    domain.RequestPriority `json:"priority"`
	Explanation string                 `json:"explanation"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// ScanResponse summarizes an AI scan.
type ScanResponse struct {
	Message        string `json:"message"`
	TicketsCreated int    `json:"ticketsCreated"`
	Skipped        int    `json:"skipped"`
}

// TeamLoadResponse is a team row on the dashboard.
type TeamLoadResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	OpenTickets int    `json:"openTickets"`
}

// TechnicianLoadResponse is a technician row on the dashboard.
type TechnicianLoadResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	TeamID         *string  `json:"teamId"`
	TeamName       *string  `json:"teamName"`
	OpenJobs       int      `json:"openJobs"`
	InProgressJobs int      `json:"inProgressJobs"`
	RepairedJobs   int      `json:"repairedJobs"`
	AvgRepairHours *float64 `json:"avgRepairHours"`
}

// DashboardResponse is the admin overview.
type DashboardResponse struct {
	CriticalEquipmentCount int                      `json:"criticalEquipmentCount"`
	RiskDistribution       map[risk.Level]int       `json:"riskDistribution"`
	TopRiskEquipment       []EquipmentResponse      `json:"topRiskEquipment"`
	LatestPredictions      []PredictionResponse     `json:"latestPredictions"`
	LatestRequests         []RequestResponse        `json:"latestRequests"`
	Teams                  []TeamLoadResponse       `json:"teams"`
	TechnicianUtilization  []TechnicianLoadResponse `json:"technicianUtilization"`
}

// NewPredictionList maps predictions.
func NewPredictionList(items []domain.Prediction) []PredictionResponse {
	out := make([]PredictionResponse, 0, len(items))
	for _, p := range items {
		out = append(out, PredictionResponse{
			ID:          p.ID,
			Equipment:   p.EquipmentID,
			Temperature: p.Temperature,
			Vibration:   p.Vibration,
			Power:       p.Power,
			Runtime:     p.Runtime,
			Anomaly:     p.Anomaly,
			RiskScore:   p.RiskScore,
			Priority:    p.Priority,
			Explanation: p.Explanation,
			CreatedAt:   p.CreatedAt,
		})
	}
	return out
}

// NewTeamLoads maps dashboard team rows.
func NewTeamLoads(items []repository.TeamLoad) []TeamLoadResponse {
	out := make([]TeamLoadResponse, 0, len(items))
	for _, t := range items {
		out = append(out, TeamLoadResponse{ID: t.TeamID, Name: t.Name, MemberCount: t.MemberCount, OpenTickets: t.OpenTickets})
	}
	return out
}

// NewTechnicianLoads maps dashboard technician rows.
func NewTechnicianLoads(items []repository.TechnicianLoad) []TechnicianLoadResponse {
	out := make([]TechnicianLoadResponse, 0, len(items))
	for _, t := range items {
		out = append(out, TechnicianLoadResponse{
			ID:             t.UserID,
			Name:           t.Name,
			Email:          t.Email,
			TeamID:         t.TeamID,
			TeamName:       t.TeamName,
			OpenJobs:       t.OpenJobs,
			InProgressJobs: t.InProgressJobs,
			RepairedJobs:   t.RepairedJobs,
			AvgRepairHours: t.AvgRepairHours,
		})
	}
	return out
}
