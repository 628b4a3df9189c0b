package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/api/dto"
	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/service"
)

// RequestsHandler serves the maintenance request lifecycle.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	var req dto.CreateRequestRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	scheduled, err := dto.ParseDate("scheduledDate", req.ScheduledDate)
	if err != nil {
		return err
	}
	created, err := h.service.Create(c.UserContext(), caller, service.CreateRequestInput{
		Subject:       req.Subject,
		Type:          domain.RequestType(strings.ToLower(strings.TrimSpace(req.Type))),
		EquipmentID:   req.Equipment,
		ScheduledDate: scheduled,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(created)})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	input := requestFilterInput(c)
	input.Page = parseInt(c.Query("page"), 1)
	input.PageSize = parseInt(c.Query("pageSize"), 0)
	page, err := h.service.List(c.UserContext(), caller, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewRequestList(page.Items),
		"meta": pageMeta(page.Page, page.PageSize, page.Total),
	})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	req, err := h.service.Get(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req)})
}

// History GET /requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryList(entries)})
}

// Kanban GET /requests/kanban.
func (h *RequestsHandler) Kanban(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	board, err := h.service.Kanban(c.UserContext(), caller)
	if err != nil {
		return err
	}
	out := make(map[domain.RequestStatus][]dto.RequestResponse, len(board))
	for status, reqs := range board {
		out[status] = dto.NewRequestList(reqs)
	}
	return c.JSON(fiber.Map{"data": out})
}

// Calendar GET /requests/calendar.
func (h *RequestsHandler) Calendar(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	days, err := h.service.Calendar(c.UserContext(), caller)
	if err != nil {
		return err
	}
	out := make(map[string][]dto.RequestResponse, len(days))
	for day, reqs := range days {
		out[day] = dto.NewRequestList(reqs)
	}
	return c.JSON(fiber.Map{"data": out})
}

// AssignToSelf PUT /requests/:id/assign.
func (h *RequestsHandler) AssignToSelf(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	req, err := h.service.AssignToSelf(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req)})
}

// AssignTo PUT /requests/:id/assign-to.
func (h *RequestsHandler) AssignTo(c *fiber.Ctx) error {
	return h.withTechnician(c, h.service.AssignToTechnician)
}

// Reassign PUT /requests/:id/reassign.
func (h *RequestsHandler) Reassign(c *fiber.Ctx) error {
	return h.withTechnician(c, h.service.Reassign)
}

type technicianOp func(ctx context.Context, caller domain.Caller, requestID, technicianID string) (*domain.Request, error)

func (h *RequestsHandler) withTechnician(c *fiber.Ctx, op technicianOp) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	var body dto.TechnicianRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	req, err := op(c.UserContext(), caller, c.Params("id"), body.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req)})
}

// Close PUT /requests/:id/close.
func (h *RequestsHandler) Close(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	var body dto.CloseRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	hours := body.Duration.Value
	if body.Duration.Set && !body.Duration.Valid {
		hours = math.NaN()
	}
	req, err := h.service.Close(c.UserContext(), caller, c.Params("id"), hours)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req)})
}
