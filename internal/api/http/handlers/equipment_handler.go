package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/api/dto"
	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/service"
)

// EquipmentHandler serves the equipment registry.
type EquipmentHandler struct {
	equipment *service.EquipmentService
}

// NewEquipmentHandler constructs handler.
func NewEquipmentHandler(equipment *service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment}
}

// Create POST /equipment.
func (h *EquipmentHandler) Create(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	var req dto.CreateEquipmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	purchased, err := dto.ParseDate("purchaseDate", req.PurchaseDate)
	if err != nil {
		return err
	}
	warranty, err := dto.ParseDate("warrantyTill", req.WarrantyTill)
	if err != nil {
		return err
	}
	eq, err := h.equipment.Create(c.UserContext(), caller, service.CreateEquipmentInput{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Department:   req.Department,
		Location:     req.Location,
		TeamID:       req.AssignedTeam,
		PurchaseDate: purchased,
		WarrantyTill: warranty,
		Status:       domain.EquipmentStatus(strings.ToLower(req.Status)),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewEquipmentResponse(eq)})
}

// List GET /equipment.
func (h *EquipmentHandler) List(c *fiber.Ctx) error {
	items, err := h.equipment.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEquipmentList(items)})
}
