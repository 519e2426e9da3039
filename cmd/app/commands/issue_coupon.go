package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	couponUseCase "github.com/allisson/ordersaga/internal/coupon/usecase"
)

// RunIssueCoupon issues one copy of a coupon to a user under the issuance lock.
func RunIssueCoupon(
	ctx context.Context,
	useCase couponUseCase.IssuanceUseCase,
	logger *slog.Logger,
	w io.Writer,
	couponIDStr, userIDStr, format string,
) error {
	couponID, err := uuid.Parse(couponIDStr)
	if err != nil {
		return fmt.Errorf("invalid coupon id: %w", err)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	userCoupon, err := useCase.Issue(ctx, couponID, userID)
	if err != nil {
		return fmt.Errorf("failed to issue coupon: %w", err)
	}

	logger.Info("coupon issued",
		slog.String("user_coupon_id", userCoupon.ID.String()),
		slog.String("coupon_id", couponID.String()),
		slog.String("user_id", userID.String()),
	)

	return writeOutput(w, format,
		fmt.Sprintf("Issued user coupon %s", userCoupon.ID),
		map[string]any{
			"id":        userCoupon.ID.String(),
			"coupon_id": couponID.String(),
			"user_id":   userID.String(),
		},
	)
}
