package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

// UserService is the admin user directory.
type UserService struct {
	users      repository.UserRepository
	teams      repository.TeamRepository
	membership *MembershipService
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(cfg config.AuthConfig, repos *repository.Repositories, membership *MembershipService, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      repos.Users,
		teams:      repos.Teams,
		membership: membership,
		bcryptCost: cfg.BcryptCost,
		logger:     logger.Named("users"),
	}
}

// CreateUserInput describes an admin-created account.
type CreateUserInput struct {
	Name     string
	Email    string
	Role     string
	Password string
	TeamID   *string
}

// CreatedUser carries the temporary password when one was generated.
type CreatedUser struct {
	User         *domain.User
	TempPassword string
}

// ListUsersInput filters the directory.
type ListUsersInput struct {
	Query    string
	Role     string
	TeamID   *string
	Page     int
	PageSize int
}

// CreateUser creates an account on behalf of an admin.
func (s *UserService) CreateUser(ctx context.Context, caller domain.Caller, input CreateUserInput) (*CreatedUser, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	email := domain.NormalizeEmail(input.Email)
	if name == "" {
		return nil, util.NewValidationError("name is required", nil)
	}
	if email == "" {
		return nil, util.NewValidationError("email is required", nil)
	}
	role := domain.RoleEmployee
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := domain.ParseRole(input.Role)
		if !ok {
			return nil, util.NewValidationError("Invalid role", map[string]any{"role": input.Role})
		}
		role = parsed
	}

	var teamID *string
	if input.TeamID != nil && strings.TrimSpace(*input.TeamID) != "" {
		if role != domain.RoleTechnician {
			return nil, util.NewValidationError("Only technicians can be assigned to a team", nil)
		}
		team, err := s.teams.GetByID(ctx, strings.TrimSpace(*input.TeamID))
		if err != nil {
			return nil, notFoundOr(err, "Team", nil)
		}
		teamID = &team.ID
	}

	password, temp := input.Password, ""
	if password == "" {
		generated, err := auth.TemporaryPassword(12)
		if err != nil {
			return nil, util.NewInternalError(err)
		}
		password, temp = generated, generated
	}

	user, err := createUser(ctx, s.users, s.bcryptCost, name, email, password, role)
	if err != nil {
		return nil, err
	}
	if teamID != nil {
		if user, err = s.membership.SetUserTeam(ctx, caller, user.ID, teamID); err != nil {
			return nil, err
		}
	}
	s.logger.Info("user created by admin", zap.String("user_id", user.ID), zap.String("actor_id", caller.ID))
	return &CreatedUser{User: user, TempPassword: temp}, nil
}

// ListUsers pages through the directory ordered by name.
func (s *UserService) ListUsers(ctx context.Context, caller domain.Caller, input ListUsersInput) (*Page[domain.User], error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	filter := repository.UserFilter{Search: input.Query}
	if strings.TrimSpace(input.Role) != "" {
		role := domain.Role(strings.ToLower(strings.TrimSpace(input.Role)))
		filter.Role = &role
	}
	if input.TeamID != nil && *input.TeamID != "" {
		filter.TeamID = input.TeamID
	}

	page, size := normalizePage(input.Page, input.PageSize, defaultUserPageSize)
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size
	items, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	if items == nil {
		items = []domain.User{}
	}
	return &Page[domain.User]{Items: items, Page: page, PageSize: size, Total: total}, nil
}
