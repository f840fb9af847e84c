package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/couponhq/coupon-management/internal/middleware"
	"github.com/couponhq/coupon-management/internal/model"
)

// CouponServiceInterface defines the interface for coupon registry logic.
type CouponServiceInterface interface {
	Create(ctx context.Context, actor *model.User, req *model.CreateCouponRequest) (*model.Coupon, error)
	Update(ctx context.Context, actor *model.User, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error)
	Delete(ctx context.Context, actor *model.User, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	ListAll(ctx context.Context, actor *model.User) ([]model.Coupon, error)
	ListActive(ctx context.Context) ([]model.Coupon, error)
	ListMine(ctx context.Context, actor *model.User) ([]model.Coupon, error)
	ListUnassigned(ctx context.Context, actor *model.User) ([]model.Coupon, error)
	BulkCreate(ctx context.Context, actor *model.User, rows []model.CouponRow) (*model.BulkCreateResult, error)
}

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// Create handles POST /api/coupons requests (manager or admin).
func (h *CouponHandler) Create(c *fiber.Ctx) error {
	var req model.CreateCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Create(c.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	log.Info().
		Str("code", coupon.Code).
		Int64("created_by", coupon.CreatedBy).
		Msg("coupon created")

	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// BulkCreate handles POST /api/coupons/bulk requests (manager or admin).
// The response always carries both the created coupons and the per-row
// errors; committed rows are never hidden behind a batch-level failure.
func (h *CouponHandler) BulkCreate(c *fiber.Ctx) error {
	var req model.BulkCreateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	result, err := h.service.BulkCreate(c.Context(), middleware.CurrentUser(c), req.Rows)
	if err != nil {
		return errorResponse(c, err)
	}

	log.Info().
		Int("rows", len(req.Rows)).
		Int("created", len(result.Created)).
		Int("errors", len(result.Errors)).
		Msg("bulk coupon upload processed")

	return c.JSON(result)
}

// List handles GET /api/coupons requests. The filter query parameter selects
// the scope: "active" (default, any caller), "all" (admin), "mine" (manager+),
// "unassigned" (manager+).
func (h *CouponHandler) List(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)

	var (
		coupons []model.Coupon
		err     error
	)
	switch filter := c.Query("filter", "active"); filter {
	case "active":
		coupons, err = h.service.ListActive(c.Context())
	case "all":
		coupons, err = h.service.ListAll(c.Context(), actor)
	case "mine":
		coupons, err = h.service.ListMine(c.Context(), actor)
	case "unassigned":
		coupons, err = h.service.ListUnassigned(c.Context(), actor)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown filter: " + filter})
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(coupons)
}

// MyCreated handles GET /api/coupons/my-created requests (manager or admin).
func (h *CouponHandler) MyCreated(c *fiber.Ctx) error {
	coupons, err := h.service.ListMine(c.Context(), middleware.CurrentUser(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(coupons)
}

// Unassigned handles GET /api/coupons/unassigned requests (manager or admin).
func (h *CouponHandler) Unassigned(c *fiber.Ctx) error {
	coupons, err := h.service.ListUnassigned(c.Context(), middleware.CurrentUser(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(coupons)
}

// GetByCode handles GET /api/coupons/code/:code requests.
func (h *CouponHandler) GetByCode(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code is required"})
	}

	coupon, err := h.service.GetByCode(c.Context(), code)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(coupon)
}

// Get handles GET /api/coupons/:id requests.
func (h *CouponHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coupon id"})
	}

	coupon, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(coupon)
}

// Update handles PUT /api/coupons/:id requests (admin only). Only supplied
// fields change; the code is immutable.
func (h *CouponHandler) Update(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coupon id"})
	}

	var req model.UpdateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Update(c.Context(), middleware.CurrentUser(c), id, &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(coupon)
}

// Delete handles DELETE /api/coupons/:id requests (admin only).
func (h *CouponHandler) Delete(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coupon id"})
	}

	if err := h.service.Delete(c.Context(), middleware.CurrentUser(c), id); err != nil {
		return errorResponse(c, err)
	}

	log.Info().
		Int64("coupon_id", id).
		Int64("deleted_by", middleware.CurrentUser(c).ID).
		Msg("coupon deleted")

	return c.Status(fiber.StatusNoContent).Send(nil)
}
