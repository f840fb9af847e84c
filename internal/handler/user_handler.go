package handler

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/couponhq/coupon-management/internal/middleware"
	"github.com/couponhq/coupon-management/internal/model"
)

// UserServiceInterface defines the interface for user management logic.
type UserServiceInterface interface {
	Create(ctx context.Context, actor *model.User, req *model.CreateUserRequest) (*model.User, error)
	List(ctx context.Context, actor *model.User) ([]model.User, error)
	Get(ctx context.Context, actor *model.User, id int64) (*model.User, error)
	Update(ctx context.Context, actor *model.User, id int64, req *model.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, actor *model.User, id int64) error
}

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service   UserServiceInterface
	validator *validator.Validate
}

// NewUserHandler creates a new UserHandler with the given service and validator.
func NewUserHandler(svc UserServiceInterface, v *validator.Validate) *UserHandler {
	return &UserHandler{service: svc, validator: v}
}

func parseID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Me handles GET /api/users/me requests for the caller's own profile.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

// Create handles POST /api/users requests to provision a user (admin only).
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req model.CreateUserRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	user, err := h.service.Create(c.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	log.Info().
		Str("username", user.Username).
		Str("role", user.Role.String()).
		Int64("created_by", middleware.CurrentUser(c).ID).
		Msg("user created")

	return c.Status(fiber.StatusCreated).JSON(user)
}

// List handles GET /api/users requests (admin only).
func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.service.List(c.Context(), middleware.CurrentUser(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(users)
}

// Get handles GET /api/users/:id requests (admin only).
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	user, err := h.service.Get(c.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(user)
}

// Update handles PUT /api/users/:id requests (admin only). Only supplied
// fields change.
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	var req model.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	user, err := h.service.Update(c.Context(), middleware.CurrentUser(c), id, &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(user)
}

// Delete handles DELETE /api/users/:id requests (admin only).
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	if err := h.service.Delete(c.Context(), middleware.CurrentUser(c), id); err != nil {
		return errorResponse(c, err)
	}

	log.Info().
		Int64("user_id", id).
		Int64("deleted_by", middleware.CurrentUser(c).ID).
		Msg("user deleted")

	return c.Status(fiber.StatusNoContent).Send(nil)
}
