package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couponhq/coupon-management/internal/middleware"
	"github.com/couponhq/coupon-management/internal/model"
	"github.com/couponhq/coupon-management/internal/service"
	appvalidator "github.com/couponhq/coupon-management/internal/validator"
)

// Test actors injected through the auth middleware.
var (
	testAdmin   = &model.User{ID: 1, Username: "admin", Role: model.RoleAdmin}
	testManager = &model.User{ID: 2, Username: "manager", Role: model.RoleManager}
	testUser    = &model.User{ID: 3, Username: "user", Role: model.RoleUser}
)

// stubResolver resolves every bearer token to a fixed user, so handler tests
// exercise the real middleware without issuing tokens.
type stubResolver struct {
	user *model.User
}

func (s *stubResolver) Resolve(ctx context.Context, token string) (*model.User, error) {
	return s.user, nil
}

// authedRequest builds a JSON request carrying a bearer token accepted by
// stubResolver.
func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

// mockCouponService is a mock implementation of CouponServiceInterface.
type mockCouponService struct {
	createFn         func(ctx context.Context, actor *model.User, req *model.CreateCouponRequest) (*model.Coupon, error)
	updateFn         func(ctx context.Context, actor *model.User, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error)
	deleteFn         func(ctx context.Context, actor *model.User, id int64) error
	getByIDFn        func(ctx context.Context, id int64) (*model.Coupon, error)
	getByCodeFn      func(ctx context.Context, code string) (*model.Coupon, error)
	listAllFn        func(ctx context.Context, actor *model.User) ([]model.Coupon, error)
	listActiveFn     func(ctx context.Context) ([]model.Coupon, error)
	listMineFn       func(ctx context.Context, actor *model.User) ([]model.Coupon, error)
	listUnassignedFn func(ctx context.Context, actor *model.User) ([]model.Coupon, error)
	bulkCreateFn     func(ctx context.Context, actor *model.User, rows []model.CouponRow) (*model.BulkCreateResult, error)
}

func (m *mockCouponService) Create(ctx context.Context, actor *model.User, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor, req)
	}
	return &model.Coupon{}, nil
}

func (m *mockCouponService) Update(ctx context.Context, actor *model.User, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, req)
	}
	return &model.Coupon{}, nil
}

func (m *mockCouponService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, id)
	}
	return nil
}

func (m *mockCouponService) GetByID(ctx context.Context, id int64) (*model.Coupon, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &model.Coupon{}, nil
}

func (m *mockCouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return &model.Coupon{}, nil
}

func (m *mockCouponService) ListAll(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, actor)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponService) ListActive(ctx context.Context) ([]model.Coupon, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponService) ListMine(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
	if m.listMineFn != nil {
		return m.listMineFn(ctx, actor)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponService) ListUnassigned(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
	if m.listUnassignedFn != nil {
		return m.listUnassignedFn(ctx, actor)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponService) BulkCreate(ctx context.Context, actor *model.User, rows []model.CouponRow) (*model.BulkCreateResult, error) {
	if m.bulkCreateFn != nil {
		return m.bulkCreateFn(ctx, actor, rows)
	}
	return &model.BulkCreateResult{Created: []model.Coupon{}, Errors: []model.RowError{}}, nil
}

func setupCouponApp(mockSvc *mockCouponService, actor *model.User) *fiber.App {
	app := fiber.New()
	h := NewCouponHandler(mockSvc, appvalidator.New())
	api := app.Group("/api", middleware.Authenticate(&stubResolver{user: actor}))
	api.Post("/coupons", h.Create)
	api.Post("/coupons/bulk", h.BulkCreate)
	api.Get("/coupons", h.List)
	api.Get("/coupons/my-created", h.MyCreated)
	api.Get("/coupons/unassigned", h.Unassigned)
	api.Get("/coupons/code/:code", h.GetByCode)
	api.Get("/coupons/:id", h.Get)
	api.Put("/coupons/:id", h.Update)
	api.Delete("/coupons/:id", h.Delete)
	return app
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result["error"]
}

func TestCouponHandler_Create_Success(t *testing.T) {
	mockSvc := &mockCouponService{
		createFn: func(ctx context.Context, actor *model.User, req *model.CreateCouponRequest) (*model.Coupon, error) {
			assert.Equal(t, testManager, actor)
			return &model.Coupon{ID: 1, Code: req.Code, DiscountAmount: *req.DiscountAmount, DiscountType: req.DiscountType, IsActive: true}, nil
		},
	}
	app := setupCouponApp(mockSvc, testManager)

	body := `{"code": "WELCOME10", "discount_amount": 10, "discount_type": "percentage"}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var coupon model.Coupon
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&coupon))
	assert.Equal(t, "WELCOME10", coupon.Code)
	assert.True(t, coupon.IsActive)
}

func TestCouponHandler_Create_MissingCode(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testManager)

	body := `{"discount_amount": 10, "discount_type": "percentage"}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: code is required", decodeError(t, resp))
}

func TestCouponHandler_Create_MissingAmount(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testManager)

	body := `{"code": "WELCOME10", "discount_type": "percentage"}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: discount_amount is required", decodeError(t, resp))
}

func TestCouponHandler_Create_AmountZeroAllowed(t *testing.T) {
	// Zero is a valid discount; the required tag must not reject it.
	app := setupCouponApp(&mockCouponService{}, testManager)

	body := `{"code": "FREEBIE", "discount_amount": 0, "discount_type": "fixed"}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestCouponHandler_Create_NegativeAmount(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testManager)

	body := `{"code": "WELCOME10", "discount_amount": -5, "discount_type": "fixed"}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: discount_amount must not be negative", decodeError(t, resp))
}

func TestCouponHandler_Create_UnknownDiscountType(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testManager)

	body := `{"code": "WELCOME10", "discount_amount": 10, "discount_type": "bogus"}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: discount_type must be one of: percentage fixed", decodeError(t, resp))
}

func TestCouponHandler_Create_Forbidden(t *testing.T) {
	mockSvc := &mockCouponService{
		createFn: func(ctx context.Context, actor *model.User, req *model.CreateCouponRequest) (*model.Coupon, error) {
			return nil, service.ErrForbidden
		},
	}
	app := setupCouponApp(mockSvc, testUser)

	body := `{"code": "WELCOME10", "discount_amount": 10, "discount_type": "percentage"}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCouponHandler_Create_Duplicate(t *testing.T) {
	mockSvc := &mockCouponService{
		createFn: func(ctx context.Context, actor *model.User, req *model.CreateCouponRequest) (*model.Coupon, error) {
			return nil, service.ErrCouponExists
		},
	}
	app := setupCouponApp(mockSvc, testManager)

	body := `{"code": "WELCOME10", "discount_amount": 10, "discount_type": "percentage"}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCouponHandler_Get_NotFound(t *testing.T) {
	mockSvc := &mockCouponService{
		getByIDFn: func(ctx context.Context, id int64) (*model.Coupon, error) {
			return nil, service.ErrCouponNotFound
		},
	}
	app := setupCouponApp(mockSvc, testUser)

	resp, err := app.Test(authedRequest(http.MethodGet, "/api/coupons/99", ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCouponHandler_Get_InvalidID(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testUser)

	resp, err := app.Test(authedRequest(http.MethodGet, "/api/coupons/abc", ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid coupon id", decodeError(t, resp))
}

func TestCouponHandler_List_FilterRouting(t *testing.T) {
	calls := map[string]int{}
	mockSvc := &mockCouponService{
		listActiveFn: func(ctx context.Context) ([]model.Coupon, error) {
			calls["active"]++
			return []model.Coupon{}, nil
		},
		listAllFn: func(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
			calls["all"]++
			return []model.Coupon{}, nil
		},
		listMineFn: func(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
			calls["mine"]++
			return []model.Coupon{}, nil
		},
		listUnassignedFn: func(ctx context.Context, actor *model.User) ([]model.Coupon, error) {
			calls["unassigned"]++
			return []model.Coupon{}, nil
		},
	}
	app := setupCouponApp(mockSvc, testAdmin)

	for _, target := range []string{
		"/api/coupons",
		"/api/coupons?filter=active",
		"/api/coupons?filter=all",
		"/api/coupons?filter=mine",
		"/api/coupons?filter=unassigned",
	} {
		resp, err := app.Test(authedRequest(http.MethodGet, target, ""))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, target)
	}

	assert.Equal(t, 2, calls["active"], "no filter defaults to active")
	assert.Equal(t, 1, calls["all"])
	assert.Equal(t, 1, calls["mine"])
	assert.Equal(t, 1, calls["unassigned"])
}

func TestCouponHandler_List_UnknownFilter(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testAdmin)

	resp, err := app.Test(authedRequest(http.MethodGet, "/api/coupons?filter=bogus", ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown filter: bogus", decodeError(t, resp))
}

func TestCouponHandler_BulkCreate_ReturnsPartialResult(t *testing.T) {
	mockSvc := &mockCouponService{
		bulkCreateFn: func(ctx context.Context, actor *model.User, rows []model.CouponRow) (*model.BulkCreateResult, error) {
			require.Len(t, rows, 2)
			return &model.BulkCreateResult{
				Created: []model.Coupon{{ID: 1, Code: "SPRING10"}},
				Errors:  []model.RowError{{Row: 2, Reason: "missing required data"}},
			}, nil
		},
	}
	app := setupCouponApp(mockSvc, testManager)

	body := `{"rows": [{"code": "SPRING10", "discount_amount": 10, "discount_type": "percentage"}, {"discount_amount": 5}]}`
	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons/bulk", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.BulkCreateResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.Created, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
}

func TestCouponHandler_BulkCreate_EmptyRows(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testManager)

	resp, err := app.Test(authedRequest(http.MethodPost, "/api/coupons/bulk", `{"rows": []}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: rows is below minimum of 1", decodeError(t, resp))
}

func TestCouponHandler_Update_Success(t *testing.T) {
	mockSvc := &mockCouponService{
		updateFn: func(ctx context.Context, actor *model.User, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error) {
			assert.Equal(t, int64(4), id)
			require.NotNil(t, req.Description)
			return &model.Coupon{ID: id, Code: "SAVE20", Description: *req.Description}, nil
		},
	}
	app := setupCouponApp(mockSvc, testAdmin)

	resp, err := app.Test(authedRequest(http.MethodPut, "/api/coupons/4", `{"description": "updated"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var coupon model.Coupon
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&coupon))
	assert.Equal(t, "updated", coupon.Description)
}

func TestCouponHandler_Delete_NoContent(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testAdmin)

	resp, err := app.Test(authedRequest(http.MethodDelete, "/api/coupons/4", ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestCouponHandler_Unauthenticated(t *testing.T) {
	app := setupCouponApp(&mockCouponService{}, testAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
