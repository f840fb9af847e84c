package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/couponhq/coupon-management/internal/model"
)

// UserResolver maps a bearer token to its user.
type UserResolver interface {
	Resolve(ctx context.Context, token string) (*model.User, error)
}

const userKey = "current_user"

// Authenticate validates the bearer token on each request and injects the
// resolved user into the request locals. Missing, malformed or unresolvable
// credentials short-circuit with 401.
func Authenticate(resolver UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization header"})
		}

		user, err := resolver.Resolve(c.Context(), parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// CurrentUser returns the authenticated user injected by Authenticate.
// Returns nil when the request did not pass through the middleware.
func CurrentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(userKey).(*model.User)
	return user
}
