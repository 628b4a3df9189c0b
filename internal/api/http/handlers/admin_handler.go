package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/api/dto"
	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler serves the dashboard, exports and manual AI scans.
type AdminHandler struct {
	dashboard *service.DashboardService
	export    *service.ExportService
	triage    *service.TriageService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(dashboard *service.DashboardService, export *service.ExportService, triage *service.TriageService) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, export: export, triage: triage}
}

// Dashboard GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	d, err := h.dashboard.Get(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		CriticalEquipmentCount: d.CriticalEquipmentCount,
		RiskDistribution:       d.RiskDistribution,
		TopRiskEquipment:       dto.NewEquipmentList(d.TopRiskEquipment),
		LatestPredictions:      dto.NewPredictionList(d.LatestPredictions),
		LatestRequests:         dto.NewRequestList(d.LatestRequests),
		Teams:                  dto.NewTeamLoads(d.Teams),
		TechnicianUtilization:  dto.NewTechnicianLoads(d.TechnicianUtilization),
	}})
}

// ExportRequests GET /admin/requests/export. Accepts the request list filters.
func (h *AdminHandler) ExportRequests(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	input := requestFilterInput(c)

	var buf bytes.Buffer
	if _, err := h.export.ExportRequests(c.UserContext(), caller, input, &buf); err != nil {
		return err
	}
	filename := fmt.Sprintf("requests-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

// Scan GET /ai/scan.
func (h *AdminHandler) Scan(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	res, err := h.triage.Scan(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ScanResponse{
		Message:        res.Message,
		TicketsCreated: res.TicketsCreated,
		Skipped:        res.Skipped,
	}})
}
