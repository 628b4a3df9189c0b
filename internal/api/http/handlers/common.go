package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/api/dto"
	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/service"
	"github.com/spec-kit/gearguard/pkg/util"
)

// bind parses the JSON body into payload and runs its validation tags.
func bind(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(payload)
}

// parseInt returns def for an empty or non-numeric value. Out of range
// numbers pass through; the services clamp them.
func parseInt(val string, def int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return parsed
}

// requestFilterInput reads the request listing filters shared by the list and
// export endpoints. equipmentId wins over its short alias equipment.
func requestFilterInput(c *fiber.Ctx) service.ListRequestsInput {
	input := service.ListRequestsInput{
		Statuses:    domain.ParseStatuses(c.Query("status")),
		Priorities:  domain.ParsePriorities(c.Query("priority")),
		TeamID:      optionalQuery(c, "team"),
		AssignedTo:  optionalQuery(c, "assignedTo"),
		EquipmentID: optionalQuery(c, "equipmentId"),
		Query:       strings.TrimSpace(c.Query("q")),
	}
	if input.EquipmentID == nil {
		input.EquipmentID = optionalQuery(c, "equipment")
	}
	if t := optionalQuery(c, "type"); t != nil {
		typ := domain.RequestType(strings.ToLower(*t))
		input.Type = &typ
	}
	return input
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func pageMeta(page, size, total int) dto.PageMeta {
	return dto.PageMeta{Page: page, PageSize: size, Total: total}
}
