// Package http provides HTTP handlers for coupon campaigns and issuance.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/coupon/http/dto"
	"github.com/allisson/ordersaga/internal/coupon/usecase"
	"github.com/allisson/ordersaga/internal/httputil"
)

// CouponHandler handles HTTP requests for coupons.
type CouponHandler struct {
	couponUseCase   usecase.CouponUseCase
	issuanceUseCase usecase.IssuanceUseCase
	logger          *slog.Logger
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(
	couponUseCase usecase.CouponUseCase,
	issuanceUseCase usecase.IssuanceUseCase,
	logger *slog.Logger,
) *CouponHandler {
	return &CouponHandler{
		couponUseCase:   couponUseCase,
		issuanceUseCase: issuanceUseCase,
		logger:          logger,
	}
}

// CreateHandler creates a coupon campaign.
// POST /v1/coupons
func (h *CouponHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateCouponRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	coupon, err := h.couponUseCase.Create(c.Request.Context(), dto.ToCreateCouponInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCouponToResponse(coupon))
}

// GetHandler returns a coupon campaign with its issued count.
// GET /v1/coupons/:id
func (h *CouponHandler) GetHandler(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	coupon, err := h.couponUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCouponToResponse(coupon))
}

// IssueHandler issues one coupon of the campaign to a user.
// POST /v1/coupons/:id/issue
func (h *CouponHandler) IssueHandler(c *gin.Context) {
	couponID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.IssueCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	issued, err := h.issuanceUseCase.Issue(c.Request.Context(), couponID, uuid.MustParse(req.UserID))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapUserCouponToResponse(issued))
}

// GetUserCouponHandler returns an issued coupon.
// GET /v1/user-coupons/:id
func (h *CouponHandler) GetUserCouponHandler(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	uc, err := h.couponUseCase.GetUserCoupon(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserCouponToResponse(uc))
}
