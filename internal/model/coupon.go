package model

import "time"

// Discount types accepted for a coupon. The amount is percentage points for
// "percentage" and a minor-currency amount for "fixed".
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Coupon represents a discount definition. The code is unique (case-sensitive)
// and immutable after creation.
type Coupon struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	Description    string     `json:"description"`
	DiscountAmount int        `json:"discount_amount"`
	DiscountType   string     `json:"discount_type"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedBy      int64      `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Assignment is a ledger row binding one coupon to one user. The pair
// (coupon_id, user_id) is unique; the unused to used transition is one-way.
type Assignment struct {
	ID         int64      `json:"id"`
	CouponID   int64      `json:"coupon_id"`
	UserID     int64      `json:"user_id"`
	IsUsed     bool       `json:"is_used"`
	AssignedAt time.Time  `json:"assigned_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
}

// AssignedCoupon is an assignment joined with its coupon, as returned by the
// per-user listing endpoints.
type AssignedCoupon struct {
	Assignment
	Coupon Coupon `json:"coupon"`
}

// CreateCouponRequest is the DTO for creating a coupon.
type CreateCouponRequest struct {
	Code           string     `json:"code" validate:"required,notblank,max=255"`
	Description    string     `json:"description" validate:"max=1024"`
	DiscountAmount *int       `json:"discount_amount" validate:"required,gte=0"`
	DiscountType   string     `json:"discount_type" validate:"required,oneof=percentage fixed"`
	ExpirationDate *time.Time `json:"expiration_date"`
}

// UpdateCouponRequest is the DTO for partially updating a coupon.
// Nil fields are left untouched; the code cannot be changed.
type UpdateCouponRequest struct {
	Description    *string    `json:"description" validate:"omitempty,max=1024"`
	DiscountAmount *int       `json:"discount_amount" validate:"omitempty,gte=0"`
	DiscountType   *string    `json:"discount_type" validate:"omitempty,oneof=percentage fixed"`
	ExpirationDate *time.Time `json:"expiration_date"`
	IsActive       *bool      `json:"is_active"`
}

// AssignCouponRequest is the DTO for assigning a coupon to a user.
type AssignCouponRequest struct {
	CouponID *int64 `json:"coupon_id" validate:"required,gt=0"`
	UserID   *int64 `json:"user_id" validate:"required,gt=0"`
}

// CouponRow is one externally-parsed row of a bulk upload.
type CouponRow struct {
	Code           string     `json:"code"`
	Description    string     `json:"description"`
	DiscountAmount *int       `json:"discount_amount"`
	DiscountType   string     `json:"discount_type"`
	ExpirationDate *time.Time `json:"expiration_date"`
}

// BulkCreateRequest is the DTO for POST /api/coupons/bulk.
type BulkCreateRequest struct {
	Rows []CouponRow `json:"rows" validate:"required,min=1,max=1000"`
}

// RowError describes why a single bulk row was skipped. Row numbers are
// 1-based to match the uploaded sheet.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// BulkCreateResult carries both the committed coupons and the per-row errors;
// a failing row never hides the rows that succeeded.
type BulkCreateResult struct {
	Created []Coupon   `json:"created"`
	Errors  []RowError `json:"errors"`
}
