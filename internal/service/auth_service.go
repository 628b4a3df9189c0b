package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthResult is a signed-in user with its bearer token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// RegisterInput describes self registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokenMgr:   tokens,
		bcryptCost: cfg.BcryptCost,
		logger:     logger.Named("auth"),
	}
}

// Register creates an account. Self-registration may pick employee or
// technician; admin is accepted only while no admin exists yet.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, util.NewValidationError("Email is required", nil)
	}
	if name == "" {
		return nil, util.NewValidationError("name is required", nil)
	}
	if input.Password == "" {
		return nil, util.NewValidationError("password is required", nil)
	}

	role := domain.RoleEmployee
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := domain.ParseRole(input.Role)
		if !ok {
			return nil, util.NewValidationError("Invalid role", map[string]any{"role": input.Role})
		}
		role = parsed
	}
	if role == domain.RoleAdmin {
		adminRole := domain.RoleAdmin
		admins, err := s.users.Count(ctx, repository.UserFilter{Role: &adminRole})
		if err != nil {
			return nil, util.MapError(err)
		}
		if admins > 0 {
			return nil, util.NewForbidden("admin accounts are created by an admin")
		}
	}

	user, err := createUser(ctx, s.users, s.bcryptCost, name, email, input.Password, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.issue(user)
}

// Login authenticates by case-insensitive email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, util.NewValidationError("Email is required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewUnauthorized("invalid credentials")
		}
		return nil, util.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, util.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func createUser(ctx context.Context, users repository.UserRepository, cost int, name, email, password string, role domain.Role) (*domain.User, error) {
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.NewConflict("Email already exists", map[string]any{"email": email})
		}
		return nil, util.MapError(err)
	}
	return user, nil
}
