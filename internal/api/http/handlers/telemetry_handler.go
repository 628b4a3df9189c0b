package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/api/dto"
	"github.com/spec-kit/gearguard/internal/service"
)

// TelemetryHandler accepts and serves raw sensor readings.
type TelemetryHandler struct {
	sensors *service.SensorService
}

// NewTelemetryHandler constructs handler.
func NewTelemetryHandler(sensors *service.SensorService) *TelemetryHandler {
	return &TelemetryHandler{sensors: sensors}
}

// Record POST /sensors.
func (h *TelemetryHandler) Record(c *fiber.Ctx) error {
	var req dto.SensorReadingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	at, err := dto.ParseDate("timestamp", req.Timestamp)
	if err != nil {
		return err
	}
	log, err := h.sensors.Record(c.UserContext(), service.RecordSensorInput{
		EquipmentID:  req.Equipment,
		Temperature:  req.Temperature,
		Vibration:    req.Vibration,
		PowerUsage:   req.PowerUsage,
		RuntimeHours: req.RuntimeHours,
		Timestamp:    at,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSensorLogResponse(log)})
}

// ListForEquipment GET /sensors/:id.
func (h *TelemetryHandler) ListForEquipment(c *fiber.Ctx) error {
	logs, err := h.sensors.ListForEquipment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSensorLogList(logs)})
}
