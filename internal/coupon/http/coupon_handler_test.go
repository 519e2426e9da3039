package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	"github.com/allisson/ordersaga/internal/coupon/http/dto"
	"github.com/allisson/ordersaga/internal/coupon/usecase"
)

type MockCouponUseCase struct {
	mock.Mock
}

func (m *MockCouponUseCase) Create(ctx context.Context, input usecase.CreateCouponInput) (*domain.Coupon, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *MockCouponUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *MockCouponUseCase) GetUserCoupon(ctx context.Context, id uuid.UUID) (*domain.UserCoupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserCoupon), args.Error(1)
}

type MockIssuanceUseCase struct {
	mock.Mock
}

func (m *MockIssuanceUseCase) Issue(ctx context.Context, couponID, userID uuid.UUID) (*domain.UserCoupon, error) {
	args := m.Called(ctx, couponID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserCoupon), args.Error(1)
}

func setupRouter(t *testing.T) (*gin.Engine, *MockCouponUseCase, *MockIssuanceUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	coupons := &MockCouponUseCase{}
	issuance := &MockIssuanceUseCase{}
	t.Cleanup(func() {
		coupons.AssertExpectations(t)
		issuance.AssertExpectations(t)
	})

	h := NewCouponHandler(coupons, issuance, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := gin.New()
	router.POST("/v1/coupons", h.CreateHandler)
	router.GET("/v1/coupons/:id", h.GetHandler)
	router.POST("/v1/coupons/:id/issue", h.IssueHandler)
	router.GET("/v1/user-coupons/:id", h.GetUserCouponHandler)
	return router, coupons, issuance
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCouponHandler_CreateHandler(t *testing.T) {
	until := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		router, coupons, _ := setupRouter(t)
		coupon := &domain.Coupon{
			ID:               uuid.Must(uuid.NewV7()),
			Name:             "Launch",
			DiscountType:     domain.DiscountTypeFixed,
			DiscountValue:    1000,
			MaxIssuanceCount: 100,
			ValidUntil:       until,
			Active:           true,
		}
		coupons.On("Create", mock.Anything, usecase.CreateCouponInput{
			Name:             "Launch",
			DiscountType:     "FIXED",
			DiscountValue:    1000,
			MaxIssuanceCount: 100,
			ValidUntil:       until,
		}).Return(coupon, nil).Once()

		w := doRequest(router, http.MethodPost, "/v1/coupons", dto.CreateCouponRequest{
			Name:             "Launch",
			DiscountType:     "FIXED",
			DiscountValue:    1000,
			MaxIssuanceCount: 100,
			ValidUntil:       until,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp dto.CouponResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, coupon.ID.String(), resp.ID)
		assert.Equal(t, "FIXED", resp.DiscountType)
	})

	t.Run("Unknown discount type", func(t *testing.T) {
		router, _, _ := setupRouter(t)
		w := doRequest(router, http.MethodPost, "/v1/coupons", dto.CreateCouponRequest{
			Name:             "Launch",
			DiscountType:     "BOGO",
			DiscountValue:    1,
			MaxIssuanceCount: 1,
			ValidUntil:       until,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "discount_type must be FIXED or PERCENT")
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		router, _, _ := setupRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/v1/coupons", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCouponHandler_IssueHandler(t *testing.T) {
	couponID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		router, _, issuance := setupRouter(t)
		issued := &domain.UserCoupon{
			ID:       uuid.Must(uuid.NewV7()),
			UserID:   userID,
			CouponID: couponID,
			Status:   domain.UserCouponStatusAvailable,
		}
		issuance.On("Issue", mock.Anything, couponID, userID).Return(issued, nil).Once()

		w := doRequest(router, http.MethodPost, "/v1/coupons/"+couponID.String()+"/issue",
			dto.IssueCouponRequest{UserID: userID.String()})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp dto.UserCouponResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, issued.ID.String(), resp.ID)
		assert.Equal(t, "AVAILABLE", resp.Status)
	})

	t.Run("Sold out", func(t *testing.T) {
		router, _, issuance := setupRouter(t)
		issuance.On("Issue", mock.Anything, couponID, userID).Return(nil, domain.ErrCouponSoldOut).Once()

		w := doRequest(router, http.MethodPost, "/v1/coupons/"+couponID.String()+"/issue",
			dto.IssueCouponRequest{UserID: userID.String()})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "coupon sold out")
	})

	t.Run("Already issued", func(t *testing.T) {
		router, _, issuance := setupRouter(t)
		issuance.On("Issue", mock.Anything, couponID, userID).Return(nil, domain.ErrCouponAlreadyIssued).Once()

		w := doRequest(router, http.MethodPost, "/v1/coupons/"+couponID.String()+"/issue",
			dto.IssueCouponRequest{UserID: userID.String()})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "coupon already issued to user")
	})

	t.Run("Invalid user id", func(t *testing.T) {
		router, _, _ := setupRouter(t)
		w := doRequest(router, http.MethodPost, "/v1/coupons/"+couponID.String()+"/issue",
			dto.IssueCouponRequest{UserID: "nope"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Invalid coupon id", func(t *testing.T) {
		router, _, _ := setupRouter(t)
		w := doRequest(router, http.MethodPost, "/v1/coupons/nope/issue",
			dto.IssueCouponRequest{UserID: userID.String()})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestCouponHandler_GetHandlers(t *testing.T) {
	t.Run("Coupon not found", func(t *testing.T) {
		router, coupons, _ := setupRouter(t)
		id := uuid.Must(uuid.NewV7())
		coupons.On("Get", mock.Anything, id).Return(nil, domain.ErrCouponNotFound).Once()

		w := doRequest(router, http.MethodGet, "/v1/coupons/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("User coupon", func(t *testing.T) {
		router, coupons, _ := setupRouter(t)
		usedAt := time.Now().UTC()
		uc := &domain.UserCoupon{
			ID:     uuid.Must(uuid.NewV7()),
			Status: domain.UserCouponStatusUsed,
			UsedAt: &usedAt,
		}
		coupons.On("GetUserCoupon", mock.Anything, uc.ID).Return(uc, nil).Once()

		w := doRequest(router, http.MethodGet, "/v1/user-coupons/"+uc.ID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.UserCouponResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "USED", resp.Status)
		require.NotNil(t, resp.UsedAt)
	})
}
