package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/couponhq/coupon-management/internal/service"
)

// errorResponse maps a service error to its HTTP status and a stable detail
// message. Unrecognized errors are logged and surface as 500.
func errorResponse(c *fiber.Ctx, err error) error {
	var status int
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrInvalidRequest):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrCouponNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrAssignmentNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrCouponExists),
		errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrUserHasCoupons),
		errors.Is(err, service.ErrAlreadyAssigned):
		status = fiber.StatusConflict
	default:
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
