package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/api/dto"
	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/service"
)

// TeamsHandler manages teams and their membership.
type TeamsHandler struct {
	membership *service.MembershipService
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(membership *service.MembershipService) *TeamsHandler {
	return &TeamsHandler{membership: membership}
}

// Create POST /teams.
func (h *TeamsHandler) Create(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	var req dto.CreateTeamRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	team, err := h.membership.CreateTeam(c.UserContext(), caller, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTeamResponse(team)})
}

// List GET /teams.
func (h *TeamsHandler) List(c *fiber.Ctx) error {
	teams, err := h.membership.ListTeams(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTeamSummaries(teams)})
}

// Get GET /teams/:id. Members are paged when page or pageSize is given.
func (h *TeamsHandler) Get(c *fiber.Ctx) error {
	q := service.TeamMembersQuery{
		Query:    c.Query("q"),
		Page:     parseInt(c.Query("page"), 0),
		PageSize: parseInt(c.Query("pageSize"), 0),
	}
	q.Paged = c.Query("page") != "" || c.Query("pageSize") != ""
	detail, err := h.membership.GetTeam(c.UserContext(), c.Params("id"), q)
	if err != nil {
		return err
	}
	out := dto.NewTeamResponse(&detail.Team)
	meta := pageMeta(detail.Page, detail.PageSize, detail.Total)
	out.Meta = &meta
	return c.JSON(fiber.Map{"data": out})
}

// AddMember POST /teams/add-member.
func (h *TeamsHandler) AddMember(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	var req dto.AddMemberRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.membership.AddMember(c.UserContext(), caller, service.AddMemberInput{
		TeamID: req.TeamID,
		UserID: req.UserID,
		Email:  req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTeamResponse(&detail.Team)})
}
