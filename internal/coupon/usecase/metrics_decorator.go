package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	"github.com/allisson/ordersaga/internal/metrics"
)

// issuanceUseCaseWithMetrics decorates IssuanceUseCase with metrics instrumentation.
type issuanceUseCaseWithMetrics struct {
	next    IssuanceUseCase
	metrics metrics.BusinessMetrics
}

// NewIssuanceUseCaseWithMetrics wraps an IssuanceUseCase with metrics recording.
func NewIssuanceUseCaseWithMetrics(useCase IssuanceUseCase, m metrics.BusinessMetrics) IssuanceUseCase {
	return &issuanceUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Issue records metrics for coupon issuance. Sold out and contention are
// reported with their own status so they can be told apart from faults.
func (u *issuanceUseCaseWithMetrics) Issue(ctx context.Context, couponID, userID uuid.UUID) (*domain.UserCoupon, error) {
	start := time.Now()
	issued, err := u.next.Issue(ctx, couponID, userID)

	status := metrics.StatusOf(err)
	u.metrics.RecordOperation(ctx, "coupon", "coupon_issue", status)
	u.metrics.RecordDuration(ctx, "coupon", "coupon_issue", time.Since(start), status)

	return issued, err
}
