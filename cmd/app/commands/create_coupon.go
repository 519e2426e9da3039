package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	couponDomain "github.com/allisson/ordersaga/internal/coupon/domain"
	couponUseCase "github.com/allisson/ordersaga/internal/coupon/usecase"
)

// RunCreateCoupon creates a coupon campaign valid from now for the given duration.
//
// Valid discount types are "fixed" and "percent".
func RunCreateCoupon(
	ctx context.Context,
	useCase couponUseCase.CouponUseCase,
	logger *slog.Logger,
	w io.Writer,
	name, discountType string,
	discountValue int64,
	maxIssuance int,
	validFor time.Duration,
	format string,
) error {
	if validFor <= 0 {
		return fmt.Errorf("valid-for must be positive, got: %s", validFor)
	}

	coupon, err := useCase.Create(ctx, couponUseCase.CreateCouponInput{
		Name:             name,
		DiscountType:     couponDomain.DiscountType(discountType),
		DiscountValue:    discountValue,
		MaxIssuanceCount: maxIssuance,
		ValidUntil:       time.Now().UTC().Add(validFor),
	})
	if err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	logger.Info("coupon created",
		slog.String("coupon_id", coupon.ID.String()),
		slog.Int("max_issuance_count", coupon.MaxIssuanceCount),
	)

	return writeOutput(w, format,
		fmt.Sprintf("Created coupon %s (%s %d), %d available until %s",
			coupon.ID, coupon.DiscountType, coupon.DiscountValue, coupon.MaxIssuanceCount,
			coupon.ValidUntil.Format(time.RFC3339)),
		map[string]any{
			"id":                 coupon.ID.String(),
			"name":               coupon.Name,
			"discount_type":      string(coupon.DiscountType),
			"discount_value":     coupon.DiscountValue,
			"max_issuance_count": coupon.MaxIssuanceCount,
			"valid_until":        coupon.ValidUntil.Format(time.RFC3339),
		},
	)
}
