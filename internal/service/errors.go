package service

import "errors"

var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidCredentials is returned when a login or token cannot be verified
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when the caller's role is insufficient for an operation
	ErrForbidden = errors.New("insufficient role")

	// ErrCouponExists is returned when attempting to create a coupon whose code already exists
	ErrCouponExists = errors.New("coupon code already exists")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrUserExists is returned when a username or email is already taken
	ErrUserExists = errors.New("username or email already exists")

	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserHasCoupons is returned when deleting a user that still owns coupons
	ErrUserHasCoupons = errors.New("user still owns coupons")

	// ErrAlreadyAssigned is returned when a coupon is already assigned to the user
	ErrAlreadyAssigned = errors.New("coupon already assigned to this user")

	// ErrAssignmentNotFound is returned when an assignment cannot be found
	ErrAssignmentNotFound = errors.New("coupon assignment not found")
)
