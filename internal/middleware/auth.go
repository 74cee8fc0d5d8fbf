package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/domain"
	"bloodlink/internal/service/auth"
	"bloodlink/internal/service/user"
)

const UserContextKey = "user"

// AuthRequired resolves the bearer token to a stored, active user.
func AuthRequired(authService auth.Service, userService user.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return Unauthorized("Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return Unauthorized("Invalid authorization header format")
		}

		claims, err := authService.ValidateAccessToken(parts[1])
		if err != nil {
			return Unauthorized("Invalid or expired token")
		}

		u, err := userService.GetByEmail(c.UserContext(), claims.Email)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				return Unauthorized("User not found")
			}
			return err
		}
		if u.ID != claims.UserID {
			return Unauthorized("Invalid or expired token")
		}
		if !u.IsActive() {
			return Forbidden("Account is banned")
		}

		c.Locals(UserContextKey, u)
		return c.Next()
	}
}

func GetCurrentUser(c *fiber.Ctx) *domain.User {
	u, ok := c.Locals(UserContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return u
}

// CurrentUser is GetCurrentUser for handlers that cannot run without one.
func CurrentUser(c *fiber.Ctx) (*domain.User, error) {
	u := GetCurrentUser(c)
	if u == nil {
		return nil, Unauthorized("User not authenticated")
	}
	return u, nil
}
