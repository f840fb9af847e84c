package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couponhq/coupon-management/internal/model"
	"github.com/couponhq/coupon-management/internal/service"
	"github.com/couponhq/coupon-management/pkg/database"
)

// CouponPoolInterface defines the database operations needed by CouponRepository.
type CouponPoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool CouponPoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool CouponPoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `id, code, description, discount_amount, discount_type,
	expiration_date, is_active, created_by, created_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.DiscountAmount, &c.DiscountType,
		&c.ExpirationDate, &c.IsActive, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert persists a new coupon and fills in its id, is_active and created_at.
// Returns service.ErrCouponExists if the code already exists.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	query := `INSERT INTO coupons (code, description, discount_amount, discount_type, expiration_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, is_active, created_at`

	err := r.pool.QueryRow(ctx, query,
		coupon.Code, coupon.Description, coupon.DiscountAmount, coupon.DiscountType,
		coupon.ExpirationDate, coupon.CreatedBy,
	).Scan(&coupon.ID, &coupon.IsActive, &coupon.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByID retrieves a coupon by id.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get coupon by id %d: %w", id, err)
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by its code (case-sensitive exact match).
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// GetForUpdate retrieves a coupon with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %d: %w", id, err)
	}
	return coupon, nil
}

// Update writes the mutable fields of a coupon within a transaction. The code
// column is immutable and never written.
// Returns service.ErrCouponNotFound when the id is absent.
func (r *CouponRepository) Update(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon) error {
	query := `UPDATE coupons SET description = $2, discount_amount = $3, discount_type = $4,
		expiration_date = $5, is_active = $6 WHERE id = $1`

	tag, err := tx.Exec(ctx, query,
		coupon.ID, coupon.Description, coupon.DiscountAmount, coupon.DiscountType,
		coupon.ExpirationDate, coupon.IsActive)
	if err != nil {
		return fmt.Errorf("update coupon %d: %w", coupon.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// Delete removes a coupon. Its assignments are removed by the ON DELETE
// CASCADE constraint.
// Returns service.ErrCouponNotFound when the id is absent.
func (r *CouponRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// List retrieves all coupons ordered by id.
func (r *CouponRepository) List(ctx context.Context) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY id`
	return r.queryCoupons(ctx, query)
}

// ListActive retrieves active, non-expired coupons ordered by id.
func (r *CouponRepository) ListActive(ctx context.Context) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons
		WHERE is_active AND (expiration_date IS NULL OR expiration_date > now())
		ORDER BY id`
	return r.queryCoupons(ctx, query)
}

// ListByCreator retrieves the coupons created by the given user, ordered by id.
func (r *CouponRepository) ListByCreator(ctx context.Context, creatorID int64) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE created_by = $1 ORDER BY id`
	return r.queryCoupons(ctx, query, creatorID)
}

// ListUnassigned retrieves coupons with zero assignments that are still
// available for assignment (active and not expired), ordered by id.
func (r *CouponRepository) ListUnassigned(ctx context.Context) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons c
		WHERE NOT EXISTS (SELECT 1 FROM coupon_assignments a WHERE a.coupon_id = c.id)
		AND c.is_active AND (c.expiration_date IS NULL OR c.expiration_date > now())
		ORDER BY c.id`
	return r.queryCoupons(ctx, query)
}

func (r *CouponRepository) queryCoupons(ctx context.Context, query string, args ...any) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	// Return empty slice, not nil
	coupons := []model.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}
