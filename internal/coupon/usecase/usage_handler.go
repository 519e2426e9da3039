package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/eventbus"
)

// UsageResult is the outcome of applying a coupon to an order amount.
type UsageResult struct {
	UserCoupon       *domain.UserCoupon
	DiscountAmount   int64
	DiscountedAmount int64
}

// UsageHandler consumes coupon usage and restore requests.
type UsageHandler struct {
	coupons     CouponRepository
	userCoupons UserCouponRepository
	publisher   eventbus.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewUsageHandler creates a UsageHandler.
func NewUsageHandler(
	coupons CouponRepository,
	userCoupons UserCouponRepository,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *UsageHandler {
	return &UsageHandler{
		coupons:     coupons,
		userCoupons: userCoupons,
		publisher:   publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register subscribes the handler to its request types.
func (h *UsageHandler) Register(sub eventbus.Subscriber) {
	sub.Subscribe(event.TypeCouponUsageRequested, h.HandleUsage)
	sub.Subscribe(event.TypeCouponRestoreRequested, h.HandleRestore)
}

// Use marks the coupon as used and computes the discount on orderAmount. The
// status transition is one conditional update; the discount is derived from
// the campaign afterwards.
func (h *UsageHandler) Use(ctx context.Context, userID, userCouponID uuid.UUID, orderAmount int64) (*UsageResult, error) {
	if orderAmount <= 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "order amount must be positive")
	}

	current, err := h.userCoupons.GetByID(ctx, userCouponID)
	if err != nil {
		return nil, err
	}
	coupon, err := h.coupons.GetByID(ctx, current.CouponID)
	if err != nil {
		return nil, err
	}

	used, err := h.userCoupons.MarkUsed(ctx, userCouponID, userID, h.now())
	if err != nil {
		return nil, err
	}

	discount := coupon.Discount(orderAmount)
	return &UsageResult{
		UserCoupon:       used,
		DiscountAmount:   discount,
		DiscountedAmount: orderAmount - discount,
	}, nil
}

// Restore reverts a used coupon to AVAILABLE. Nothing to restore is not an error.
func (h *UsageHandler) Restore(ctx context.Context, userCouponID uuid.UUID) (bool, error) {
	return h.userCoupons.MarkAvailable(ctx, userCouponID)
}

// HandleUsage processes a CouponUsageRequested event.
func (h *UsageHandler) HandleUsage(ctx context.Context, ev event.Event) error {
	req, ok := ev.(event.CouponUsageRequested)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	completion := event.CouponUsageCompleted{
		Outcome:      event.Succeed(req.CorrelationID),
		UserID:       req.UserID,
		UserCouponID: req.UserCouponID,
	}

	result, err := h.Use(ctx, req.UserID, req.UserCouponID, req.OrderAmount)
	if err != nil {
		h.logger.Info("coupon usage rejected",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("user_coupon_id", req.UserCouponID.String()),
			slog.Any("error", err),
		)
		completion.Outcome = event.Fail(req.CorrelationID, err)
	} else {
		completion.DiscountAmount = result.DiscountAmount
		completion.DiscountedAmount = result.DiscountedAmount
	}

	return h.publisher.Publish(ctx, completion)
}

// HandleRestore processes a CouponRestoreRequested event.
func (h *UsageHandler) HandleRestore(ctx context.Context, ev event.Event) error {
	req, ok := ev.(event.CouponRestoreRequested)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	completion := event.CouponRestoreCompleted{
		Outcome:      event.Succeed(req.CorrelationID),
		UserCouponID: req.UserCouponID,
	}

	restored, err := h.Restore(ctx, req.UserCouponID)
	switch {
	case err != nil:
		h.logger.Error("coupon restore failed",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("user_coupon_id", req.UserCouponID.String()),
			slog.Any("error", err),
		)
		completion.Outcome = event.Fail(req.CorrelationID, err)
	case restored:
		h.logger.Info("coupon restored",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("user_coupon_id", req.UserCouponID.String()),
			slog.String("reason", req.Reason),
		)
	default:
		h.logger.Info("coupon restore found nothing to restore",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("user_coupon_id", req.UserCouponID.String()),
		)
	}

	return h.publisher.Publish(ctx, completion)
}
