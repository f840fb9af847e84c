package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// jsonFieldNames maps struct field names to their wire names for validation
// error messages.
var jsonFieldNames = map[string]string{
	"Username":       "username",
	"Email":          "email",
	"Password":       "password",
	"Role":           "role",
	"Code":           "code",
	"Description":    "description",
	"DiscountAmount": "discount_amount",
	"DiscountType":   "discount_type",
	"ExpirationDate": "expiration_date",
	"IsActive":       "is_active",
	"CouponID":       "coupon_id",
	"UserID":         "user_id",
	"Rows":           "rows",
}

// formatValidationError converts validator errors into stable, human-readable
// messages. Provides defensive handling for unknown fields and tags.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := jsonFieldNames[fe.Field()]
			if field == "" {
				field = fe.Field()
			}

			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required"
			case "notblank":
				return "invalid request: " + field + " cannot be whitespace only"
			case "max":
				return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
			case "min":
				return "invalid request: " + field + " is below minimum of " + fe.Param()
			case "email":
				return "invalid request: " + field + " must be a valid email address"
			case "oneof":
				return "invalid request: " + field + " must be one of: " + fe.Param()
			case "role":
				return "invalid request: " + field + " must be one of: user manager admin"
			case "gte", "gt":
				return "invalid request: " + field + " must not be negative"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}
