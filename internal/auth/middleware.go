package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

const callerKey = "auth_caller"

// AuthMiddleware validates bearer tokens and resolves the caller from the
// current user row, so role and team changes apply to existing tokens.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return util.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return util.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return util.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return util.NewUnauthorized("user not found")
		}
		return util.MapError(err)
	}

	c.Locals(callerKey, domain.CallerFromUser(user))
	return c.Next()
}

// CallerFromContext retrieves the authenticated caller.
func CallerFromContext(c *fiber.Ctx) (domain.Caller, bool) {
	caller, ok := c.Locals(callerKey).(domain.Caller)
	return caller, ok
}

// MustCaller is used by handlers mounted behind Handle.
func MustCaller(c *fiber.Ctx) (domain.Caller, error) {
	caller, ok := CallerFromContext(c)
	if !ok {
		return domain.Caller{}, util.NewUnauthorized("authentication required")
	}
	return caller, nil
}
