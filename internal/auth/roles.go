package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RequireRoles narrows a route below its prefix rule. It must run after Guard.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("invalid or missing credentials")
		}
		if len(allowed) > 0 && !principal.HasRole(allowed...) {
			return apperrors.NewForbidden()
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the caller is authenticated, whatever its role.
func RequireAnyRole() fiber.Handler {
	return RequireRoles()
}
