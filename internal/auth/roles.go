package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/pkg/util"
)

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		caller, ok := CallerFromContext(c)
		if !ok {
			return util.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[caller.Role]; !exists {
			return util.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAdmin is RequireRole(admin).
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
