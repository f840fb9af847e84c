package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/couponhq/coupon-management/internal/model"
)

// BulkCreate creates coupons from an externally-parsed batch of rows.
// Requires manager or admin. A bad row is skipped with a collected error and
// never aborts the batch; the result carries both the committed coupons and
// the per-row errors. Row numbers are 1-based.
func (s *CouponService) BulkCreate(ctx context.Context, actor *model.User, rows []model.CouponRow) (*model.BulkCreateResult, error) {
	if !actor.Role.AtLeast(model.RoleManager) {
		return nil, ErrForbidden
	}

	result := &model.BulkCreateResult{
		Created: []model.Coupon{},
		Errors:  []model.RowError{},
	}
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		rowNum := i + 1

		if strings.TrimSpace(row.Code) == "" || row.DiscountType == "" || row.DiscountAmount == nil {
			result.Errors = append(result.Errors, model.RowError{
				Row: rowNum, Reason: "missing required data",
			})
			continue
		}
		if *row.DiscountAmount < 0 {
			result.Errors = append(result.Errors, model.RowError{
				Row: rowNum, Reason: "discount_amount must not be negative",
			})
			continue
		}
		if !validDiscountType(row.DiscountType) {
			result.Errors = append(result.Errors, model.RowError{
				Row: rowNum, Reason: fmt.Sprintf("unknown discount_type %q", row.DiscountType),
			})
			continue
		}
		if seen[row.Code] {
			result.Errors = append(result.Errors, model.RowError{
				Row: rowNum, Reason: fmt.Sprintf("coupon code %s duplicated in batch", row.Code),
			})
			continue
		}

		existing, err := s.coupons.GetByCode(ctx, row.Code)
		if err != nil {
			return nil, fmt.Errorf("check code for row %d: %w", rowNum, err)
		}
		if existing != nil {
			result.Errors = append(result.Errors, model.RowError{
				Row: rowNum, Reason: fmt.Sprintf("coupon code %s already exists", row.Code),
			})
			continue
		}

		coupon := &model.Coupon{
			Code:           row.Code,
			Description:    row.Description,
			DiscountAmount: *row.DiscountAmount,
			DiscountType:   row.DiscountType,
			ExpirationDate: row.ExpirationDate,
			CreatedBy:      actor.ID,
		}
		if err := s.coupons.Insert(ctx, coupon); err != nil {
			// A concurrent writer can still win the code between the
			// pre-check and the insert; record it as a row error.
			if errors.Is(err, ErrCouponExists) {
				result.Errors = append(result.Errors, model.RowError{
					Row: rowNum, Reason: fmt.Sprintf("coupon code %s already exists", row.Code),
				})
				continue
			}
			return nil, fmt.Errorf("insert row %d: %w", rowNum, err)
		}

		seen[row.Code] = true
		result.Created = append(result.Created, *coupon)
	}

	return result, nil
}
