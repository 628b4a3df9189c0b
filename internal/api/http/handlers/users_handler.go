package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/api/dto"
	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/service"
)

// UsersHandler exposes sign-in and the admin user directory.
type UsersHandler struct {
	auth       *service.AuthService
	users      *service.UserService
	membership *service.MembershipService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, users *service.UserService, membership *service.MembershipService) *UsersHandler {
	return &UsersHandler{auth: authService, users: users, membership: membership}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": authResponse(res)})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(res)})
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.users.CreateUser(c.UserContext(), caller, service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
		TeamID:   req.TeamID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreatedUserResponse{
		User:         dto.NewUserResponse(created.User),
		TempPassword: created.TempPassword,
	}})
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	page, err := h.users.ListUsers(c.UserContext(), caller, service.ListUsersInput{
		Query:    c.Query("q"),
		Role:     c.Query("role"),
		TeamID:   optionalQuery(c, "team"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("pageSize"), 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewUserList(page.Items),
		"meta": pageMeta(page.Page, page.PageSize, page.Total),
	})
}

// SetTeam handles PUT /users/:id/team.
func (h *UsersHandler) SetTeam(c *fiber.Ctx) error {
	caller, err := auth.MustCaller(c)
	if err != nil {
		return err
	}
	var req dto.SetUserTeamRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.membership.SetUserTeam(c.UserContext(), caller, c.Params("id"), req.TeamID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func authResponse(res *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: dto.NewUserResponse(res.User)}
}
