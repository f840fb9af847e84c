package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/couponhq/coupon-management/internal/model"
	"github.com/couponhq/coupon-management/internal/service"
)

// AuthServiceInterface defines the interface for credential verification.
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (string, *model.User, error)
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service   AuthServiceInterface
	validator *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given service and validator.
func NewAuthHandler(svc AuthServiceInterface, v *validator.Validate) *AuthHandler {
	return &AuthHandler{service: svc, validator: v}
}

// Login handles POST /auth/token requests to exchange credentials for a
// bearer token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req model.LoginRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	token, user, err := h.service.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "incorrect username or password"})
		}
		log.Error().Err(err).Str("username", req.Username).Msg("login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("username", user.Username).
		Str("role", user.Role.String()).
		Msg("user logged in")

	return c.JSON(model.TokenResponse{AccessToken: token, TokenType: "bearer"})
}
