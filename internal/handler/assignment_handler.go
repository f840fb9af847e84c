package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/couponhq/coupon-management/internal/middleware"
	"github.com/couponhq/coupon-management/internal/model"
)

// AssignmentServiceInterface defines the interface for assignment ledger logic.
type AssignmentServiceInterface interface {
	Assign(ctx context.Context, actor *model.User, couponID, userID int64) (*model.Assignment, error)
	Redeem(ctx context.Context, actor *model.User, assignmentID int64) (*model.Assignment, error)
	ListForUser(ctx context.Context, actor *model.User, userID int64) ([]model.AssignedCoupon, error)
	ListUnusedForUser(ctx context.Context, actor *model.User, userID int64) ([]model.AssignedCoupon, error)
}

// AssignmentHandler handles HTTP requests for assignment operations.
type AssignmentHandler struct {
	service   AssignmentServiceInterface
	validator *validator.Validate
}

// NewAssignmentHandler creates a new AssignmentHandler with the given service
// and validator.
func NewAssignmentHandler(svc AssignmentServiceInterface, v *validator.Validate) *AssignmentHandler {
	return &AssignmentHandler{service: svc, validator: v}
}

// Assign handles POST /api/coupons/assign requests (manager or admin).
func (h *AssignmentHandler) Assign(c *fiber.Ctx) error {
	var req model.AssignCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	assignment, err := h.service.Assign(c.Context(), middleware.CurrentUser(c), *req.CouponID, *req.UserID)
	if err != nil {
		return errorResponse(c, err)
	}

	log.Info().
		Int64("coupon_id", assignment.CouponID).
		Int64("user_id", assignment.UserID).
		Int64("assigned_by", middleware.CurrentUser(c).ID).
		Msg("coupon assigned")

	return c.Status(fiber.StatusCreated).JSON(assignment)
}

// Redeem handles POST /api/coupons/use/:id requests. The first call stamps
// used_at; repeated calls return the same row unchanged.
func (h *AssignmentHandler) Redeem(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid assignment id"})
	}

	assignment, err := h.service.Redeem(c.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return errorResponse(c, err)
	}

	log.Info().
		Int64("assignment_id", assignment.ID).
		Int64("user_id", assignment.UserID).
		Msg("coupon redeemed")

	return c.JSON(assignment)
}

// MyCoupons handles GET /api/coupons/my-coupons requests: every assignment
// for the caller, redeemed ones included.
func (h *AssignmentHandler) MyCoupons(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	assigned, err := h.service.ListForUser(c.Context(), actor, actor.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(assigned)
}

// MyUnusedCoupons handles GET /api/coupons/my-unused-coupons requests.
func (h *AssignmentHandler) MyUnusedCoupons(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	assigned, err := h.service.ListUnusedForUser(c.Context(), actor, actor.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(assigned)
}

// UserCoupons handles GET /api/users/:id/coupons requests (the user
// themselves or an admin). With ?unused=true, redeemed rows are filtered out.
func (h *AssignmentHandler) UserCoupons(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	actor := middleware.CurrentUser(c)
	var (
		assigned []model.AssignedCoupon
		err      error
	)
	if c.QueryBool("unused") {
		assigned, err = h.service.ListUnusedForUser(c.Context(), actor, id)
	} else {
		assigned, err = h.service.ListForUser(c.Context(), actor, id)
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(assigned)
}
