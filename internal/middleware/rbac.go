package middleware

import (
	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/domain"
)

func RequireRole(roles ...domain.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := GetCurrentUser(c)
		if u == nil {
			return Unauthorized("User not found")
		}

		if !u.HasRole(roles...) {
			return Forbidden("Insufficient permissions for this operation")
		}

		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}

func RequireFacility() fiber.Handler {
	return RequireRole(domain.RoleHospital, domain.RoleBloodBank)
}
