package service

import (
	"context"
	"fmt"
	"time"

	"github.com/couponhq/coupon-management/internal/model"
)

// AssignmentRepositoryInterface defines the interface for assignment data access.
type AssignmentRepositoryInterface interface {
	Insert(ctx context.Context, assignment *model.Assignment) error
	GetByID(ctx context.Context, id int64) (*model.Assignment, error)
	MarkUsed(ctx context.Context, id int64, usedAt time.Time) (*model.Assignment, error)
	ListByUser(ctx context.Context, userID int64, unusedOnly bool) ([]model.AssignedCoupon, error)
}

// CouponFinderInterface is the coupon lookup needed for assignment pre-checks.
type CouponFinderInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Coupon, error)
}

// UserFinderInterface is the user lookup needed for assignment pre-checks.
type UserFinderInterface interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// AssignmentService owns the coupon/user assignment ledger.
type AssignmentService struct {
	assignments AssignmentRepositoryInterface
	coupons     CouponFinderInterface
	users       UserFinderInterface
}

// NewAssignmentService creates a new AssignmentService with the given repositories.
func NewAssignmentService(assignments AssignmentRepositoryInterface, coupons CouponFinderInterface, users UserFinderInterface) *AssignmentService {
	return &AssignmentService{assignments: assignments, coupons: coupons, users: users}
}

// Assign creates an unused assignment for the (coupon, user) pair.
// Requires manager or admin. Returns ErrCouponNotFound / ErrUserNotFound when
// a referenced entity is absent and ErrAlreadyAssigned when the pair already
// has a row. The pre-checks are advisory; the (coupon_id, user_id) unique
// constraint is what serializes concurrent assigns.
func (s *AssignmentService) Assign(ctx context.Context, actor *model.User, couponID, userID int64) (*model.Assignment, error) {
	if !actor.Role.AtLeast(model.RoleManager) {
		return nil, ErrForbidden
	}
	if couponID <= 0 || userID <= 0 {
		return nil, ErrInvalidRequest
	}

	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, fmt.Errorf("check coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	assignment := &model.Assignment{CouponID: couponID, UserID: userID}
	if err := s.assignments.Insert(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// Redeem transitions an assignment to used. Only the assigned user or an
// admin may redeem. The transition is one-way: the first redemption stamps
// used_at, every later call returns the row unchanged.
func (s *AssignmentService) Redeem(ctx context.Context, actor *model.User, assignmentID int64) (*model.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}

	if actor.ID != assignment.UserID && !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}

	if assignment.IsUsed {
		return assignment, nil
	}

	updated, err := s.assignments.MarkUsed(ctx, assignmentID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if updated != nil {
		return updated, nil
	}

	// Lost a concurrent redemption race; the winner's stamp stands.
	assignment, err = s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}
	return assignment, nil
}

// ListForUser retrieves all assignments for a user with coupon data joined.
// The caller must be that user or an admin.
func (s *AssignmentService) ListForUser(ctx context.Context, actor *model.User, userID int64) ([]model.AssignedCoupon, error) {
	if actor.ID != userID && !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}
	return s.assignments.ListByUser(ctx, userID, false)
}

// ListUnusedForUser retrieves the unredeemed assignments for a user with
// coupon data joined. The caller must be that user or an admin.
func (s *AssignmentService) ListUnusedForUser(ctx context.Context, actor *model.User, userID int64) ([]model.AssignedCoupon, error) {
	if actor.ID != userID && !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}
	return s.assignments.ListByUser(ctx, userID, true)
}
