package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couponhq/coupon-management/internal/model"
	"github.com/couponhq/coupon-management/internal/service"
)

// AssignmentPoolInterface defines the database operations needed by AssignmentRepository.
type AssignmentPoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AssignmentRepository provides data access for coupon assignments using pgx.
type AssignmentRepository struct {
	pool AssignmentPoolInterface
}

// NewAssignmentRepository creates a new AssignmentRepository with the given pool.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// NewAssignmentRepositoryWithPool creates a new AssignmentRepository with a custom
// pool interface. This is primarily used for testing.
func NewAssignmentRepositoryWithPool(pool AssignmentPoolInterface) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

const assignmentColumns = `id, coupon_id, user_id, is_used, assigned_at, used_at`

func scanAssignment(row pgx.Row) (*model.Assignment, error) {
	var a model.Assignment
	err := row.Scan(&a.ID, &a.CouponID, &a.UserID, &a.IsUsed, &a.AssignedAt, &a.UsedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Insert persists a new assignment and fills in its id, is_used and assigned_at.
// The (coupon_id, user_id) unique constraint serializes concurrent assigns:
// returns service.ErrAlreadyAssigned when the pair already has a row, and
// service.ErrCouponNotFound / service.ErrUserNotFound when a referenced
// entity vanished between the service pre-check and the insert.
func (r *AssignmentRepository) Insert(ctx context.Context, assignment *model.Assignment) error {
	query := `INSERT INTO coupon_assignments (coupon_id, user_id)
		VALUES ($1, $2) RETURNING id, is_used, assigned_at`

	err := r.pool.QueryRow(ctx, query, assignment.CouponID, assignment.UserID).
		Scan(&assignment.ID, &assignment.IsUsed, &assignment.AssignedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return service.ErrAlreadyAssigned
			case "23503":
				if strings.Contains(pgErr.ConstraintName, "user") {
					return service.ErrUserNotFound
				}
				return service.ErrCouponNotFound
			}
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment by id.
// Returns nil, nil if the assignment is not found (service layer handles this).
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM coupon_assignments WHERE id = $1`

	assignment, err := scanAssignment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get assignment by id %d: %w", id, err)
	}
	return assignment, nil
}

// MarkUsed performs the one-way unused to used transition as a compare-and-set:
// only the row that is still unused is updated, so exactly one concurrent
// caller wins and used_at is stamped once.
// Returns nil, nil when the row is absent or already used (service re-reads).
func (r *AssignmentRepository) MarkUsed(ctx context.Context, id int64, usedAt time.Time) (*model.Assignment, error) {
	query := `UPDATE coupon_assignments SET is_used = TRUE, used_at = $2
		WHERE id = $1 AND NOT is_used
		RETURNING ` + assignmentColumns

	assignment, err := scanAssignment(r.pool.QueryRow(ctx, query, id, usedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Absent or lost the race - let service re-read
		}
		return nil, fmt.Errorf("mark assignment %d used: %w", id, err)
	}
	return assignment, nil
}

// ListByUser retrieves all assignments for a user with coupon data joined,
// ordered by assignment id. With unusedOnly, redeemed rows are filtered out.
func (r *AssignmentRepository) ListByUser(ctx context.Context, userID int64, unusedOnly bool) ([]model.AssignedCoupon, error) {
	query := `SELECT a.id, a.coupon_id, a.user_id, a.is_used, a.assigned_at, a.used_at,
		c.id, c.code, c.description, c.discount_amount, c.discount_type,
		c.expiration_date, c.is_active, c.created_by, c.created_at
		FROM coupon_assignments a
		JOIN coupons c ON c.id = a.coupon_id
		WHERE a.user_id = $1`
	if unusedOnly {
		query += ` AND NOT a.is_used`
	}
	query += ` ORDER BY a.id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments for user %d: %w", userID, err)
	}
	defer rows.Close()

	// Return empty slice, not nil
	assigned := []model.AssignedCoupon{}
	for rows.Next() {
		var ac model.AssignedCoupon
		err := rows.Scan(
			&ac.ID, &ac.CouponID, &ac.UserID, &ac.IsUsed, &ac.AssignedAt, &ac.UsedAt,
			&ac.Coupon.ID, &ac.Coupon.Code, &ac.Coupon.Description, &ac.Coupon.DiscountAmount,
			&ac.Coupon.DiscountType, &ac.Coupon.ExpirationDate, &ac.Coupon.IsActive,
			&ac.Coupon.CreatedBy, &ac.Coupon.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan assigned coupon: %w", err)
		}
		assigned = append(assigned, ac)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignment rows: %w", err)
	}
	return assigned, nil
}
