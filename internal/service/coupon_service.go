package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couponhq/coupon-management/internal/model"
	"github.com/couponhq/coupon-management/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByID(ctx context.Context, id int64) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error)
	Update(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]model.Coupon, error)
	ListActive(ctx context.Context) ([]model.Coupon, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]model.Coupon, error)
	ListUnassigned(ctx context.Context) ([]model.Coupon, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CouponService provides role-gated business logic for the coupon registry.
type CouponService struct {
	pool    TxBeginner
	coupons CouponRepositoryInterface
}

// NewCouponService creates a new CouponService with the given pool and repository.
func NewCouponService(pool *pgxpool.Pool, coupons CouponRepositoryInterface) *CouponService {
	return &CouponService{pool: pool, coupons: coupons}
}

// NewCouponServiceWithTxBeginner creates a CouponService with a custom TxBeginner.
// Primarily used for testing.
func NewCouponServiceWithTxBeginner(pool TxBeginner, coupons CouponRepositoryInterface) *CouponService {
	return &CouponService{pool: pool, coupons: coupons}
}

func validDiscountType(t string) bool {
	return t == model.DiscountPercentage || t == model.DiscountFixed
}

// Create creates a new coupon attributed to the actor. Requires manager or admin.
// Returns ErrCouponExists when the code is already taken (pre-check plus the
// unique constraint behind Insert, so concurrent creates cannot both win).
func (s *CouponService) Create(ctx context.Context, actor *model.User, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if !actor.Role.AtLeast(model.RoleManager) {
		return nil, ErrForbidden
	}
	// Defense-in-depth: check even though handler validates
	if req == nil || req.Code == "" || req.DiscountAmount == nil || *req.DiscountAmount < 0 ||
		!validDiscountType(req.DiscountType) {
		return nil, ErrInvalidRequest
	}

	existing, err := s.coupons.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("check code: %w", err)
	}
	if existing != nil {
		return nil, ErrCouponExists
	}

	coupon := &model.Coupon{
		Code:           req.Code,
		Description:    req.Description,
		DiscountAmount: *req.DiscountAmount,
		DiscountType:   req.DiscountType,
		ExpirationDate: req.ExpirationDate,
		CreatedBy:      actor.ID,
	}
	if err := s.coupons.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Update applies a partial update to a coupon. Requires admin.
// The row is locked for the duration of the read-merge-write so the update is
// atomic; fields not supplied are untouched and the code never changes.
func (s *CouponService) Update(ctx context.Context, actor *model.User, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if req.DiscountAmount != nil && *req.DiscountAmount < 0 {
		return nil, ErrInvalidRequest
	}
	if req.DiscountType != nil && !validDiscountType(*req.DiscountType) {
		return nil, ErrInvalidRequest
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	coupon, err := s.coupons.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		coupon.Description = *req.Description
	}
	if req.DiscountAmount != nil {
		coupon.DiscountAmount = *req.DiscountAmount
	}
	if req.DiscountType != nil {
		coupon.DiscountType = *req.DiscountType
	}
	if req.ExpirationDate != nil {
		coupon.ExpirationDate = req.ExpirationDate
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := s.coupons.Update(ctx, tx, coupon); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return coupon, nil
}

// Delete removes a coupon and, via the schema's cascade, its assignments.
// Requires admin. Returns ErrCouponNotFound on miss.
func (s *CouponService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return ErrForbidden
	}
	return s.coupons.Delete(ctx, id)
}

// GetByID retrieves a coupon by id. Returns ErrCouponNotFound on miss.
func (s *CouponService) GetByID(ctx context.Context, id int64) (*model.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by code. Returns ErrCouponNotFound on miss.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// ListAll retrieves every coupon. Requires admin.
func (s *CouponService) ListAll(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}
	return s.coupons.List(ctx)
}

// ListActive retrieves active, non-expired coupons. Any authenticated caller.
func (s *CouponService) ListActive(ctx context.Context) ([]model.Coupon, error) {
	return s.coupons.ListActive(ctx)
}

// ListMine retrieves the coupons created by the actor. Requires manager or admin.
func (s *CouponService) ListMine(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
	if !actor.Role.AtLeast(model.RoleManager) {
		return nil, ErrForbidden
	}
	return s.coupons.ListByCreator(ctx, actor.ID)
}

// ListUnassigned retrieves coupons with no assignments that are still
// available for assignment. Requires manager or admin.
func (s *CouponService) ListUnassigned(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
	if !actor.Role.AtLeast(model.RoleManager) {
		return nil, ErrForbidden
	}
	return s.coupons.ListUnassigned(ctx)
}
