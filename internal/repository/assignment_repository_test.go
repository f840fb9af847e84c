package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couponhq/coupon-management/internal/model"
	"github.com/couponhq/coupon-management/internal/service"
)

func TestAssignmentRepository_Insert_Success(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			capturedArgs = args
			return &mockRow{
				scanFn: func(dest ...any) error {
					*(dest[0].(*int64)) = 100
					*(dest[1].(*bool)) = false
					*(dest[2].(*time.Time)) = time.Now()
					return nil
				},
			}
		},
	}

	repo := NewAssignmentRepositoryWithPool(mock)
	assignment := &model.Assignment{CouponID: 7, UserID: 3}

	err := repo.Insert(context.Background(), assignment)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "INSERT INTO coupon_assignments")
	assert.Equal(t, int64(7), capturedArgs[0])
	assert.Equal(t, int64(3), capturedArgs[1])
	assert.Equal(t, int64(100), assignment.ID)
	assert.False(t, assignment.IsUsed)
}

func TestAssignmentRepository_Insert_AlreadyAssigned(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{
				scanFn: func(dest ...any) error {
					return &pgconn.PgError{
						Code:           "23505",
						ConstraintName: "coupon_assignments_coupon_user_key",
					}
				},
			}
		},
	}

	repo := NewAssignmentRepositoryWithPool(mock)
	err := repo.Insert(context.Background(), &model.Assignment{CouponID: 7, UserID: 3})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrAlreadyAssigned))
}

func TestAssignmentRepository_Insert_ForeignKeyViolations(t *testing.T) {
	testCases := []struct {
		name       string
		constraint string
		expected   error
	}{
		{"missing user", "coupon_assignments_user_id_fkey", service.ErrUserNotFound},
		{"missing coupon", "coupon_assignments_coupon_id_fkey", service.ErrCouponNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockPool{
				queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
					return &mockRow{
						scanFn: func(dest ...any) error {
							return &pgconn.PgError{Code: "23503", ConstraintName: tc.constraint}
						},
					}
				},
			}

			repo := NewAssignmentRepositoryWithPool(mock)
			err := repo.Insert(context.Background(), &model.Assignment{CouponID: 7, UserID: 3})

			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.expected))
		})
	}
}

func TestAssignmentRepository_GetByID_NotFound(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewAssignmentRepositoryWithPool(mock)
	assignment, err := repo.GetByID(context.Background(), 99)

	require.NoError(t, err)
	assert.Nil(t, assignment, "should return nil for not found")
}

func TestAssignmentRepository_MarkUsed_Success(t *testing.T) {
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var capturedSQL string
	var capturedArgs []any
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			capturedArgs = args
			return &mockRow{
				scanFn: func(dest ...any) error {
					*(dest[0].(*int64)) = 100
					*(dest[1].(*int64)) = 7
					*(dest[2].(*int64)) = 3
					*(dest[3].(*bool)) = true
					*(dest[4].(*time.Time)) = stamp.Add(-time.Hour)
					*(dest[5].(**time.Time)) = &stamp
					return nil
				},
			}
		},
	}

	repo := NewAssignmentRepositoryWithPool(mock)
	assignment, err := repo.MarkUsed(context.Background(), 100, stamp)

	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.True(t, assignment.IsUsed)
	assert.Equal(t, stamp, *assignment.UsedAt)
	// The compare-and-set predicate is what makes redemption race-safe
	assert.Contains(t, capturedSQL, "AND NOT is_used")
	assert.Equal(t, int64(100), capturedArgs[0])
	assert.Equal(t, stamp, capturedArgs[1])
}

func TestAssignmentRepository_MarkUsed_LostRace(t *testing.T) {
	// The RETURNING clause yields no row when another caller already won.
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewAssignmentRepositoryWithPool(mock)
	assignment, err := repo.MarkUsed(context.Background(), 100, time.Now())

	require.NoError(t, err)
	assert.Nil(t, assignment, "nil signals the caller to re-read")
}

func TestAssignmentRepository_ListByUser_JoinsCoupons(t *testing.T) {
	var capturedSQL string
	mock := &mockPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			return &mockRows{scanFns: []func(dest ...any) error{
				func(dest ...any) error {
					*(dest[0].(*int64)) = 100
					*(dest[1].(*int64)) = 7
					*(dest[2].(*int64)) = 3
					*(dest[3].(*bool)) = false
					*(dest[4].(*time.Time)) = time.Now()
					*(dest[5].(**time.Time)) = nil
					*(dest[6].(*int64)) = 7
					*(dest[7].(*string)) = "WELCOME10"
					*(dest[8].(*string)) = "welcome"
					*(dest[9].(*int)) = 10
					*(dest[10].(*string)) = model.DiscountPercentage
					*(dest[11].(**time.Time)) = nil
					*(dest[12].(*bool)) = true
					*(dest[13].(*int64)) = 2
					*(dest[14].(*time.Time)) = time.Now()
					return nil
				},
			}}, nil
		},
	}

	repo := NewAssignmentRepositoryWithPool(mock)
	assigned, err := repo.ListByUser(context.Background(), 3, false)

	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, int64(100), assigned[0].ID)
	assert.Equal(t, "WELCOME10", assigned[0].Coupon.Code)
	assert.Contains(t, capturedSQL, "JOIN coupons")
	assert.NotContains(t, capturedSQL, "NOT a.is_used")
}

func TestAssignmentRepository_ListByUser_UnusedOnly(t *testing.T) {
	var capturedSQL string
	mock := &mockPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			return &mockRows{}, nil
		},
	}

	repo := NewAssignmentRepositoryWithPool(mock)
	assigned, err := repo.ListByUser(context.Background(), 3, true)

	require.NoError(t, err)
	assert.NotNil(t, assigned, "empty result must be a slice, not nil")
	assert.Empty(t, assigned)
	assert.Contains(t, capturedSQL, "NOT a.is_used")
}
