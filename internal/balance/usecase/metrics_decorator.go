package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/balance/domain"
	"github.com/allisson/ordersaga/internal/metrics"
)

// balanceUseCaseWithMetrics decorates BalanceUseCase with metrics instrumentation.
type balanceUseCaseWithMetrics struct {
	next    BalanceUseCase
	metrics metrics.BusinessMetrics
}

// NewBalanceUseCaseWithMetrics wraps a BalanceUseCase with metrics recording.
func NewBalanceUseCaseWithMetrics(useCase BalanceUseCase, m metrics.BusinessMetrics) BalanceUseCase {
	return &balanceUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Get records metrics for balance lookup.
func (u *balanceUseCaseWithMetrics) Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	start := time.Now()
	balance, err := u.next.Get(ctx, userID)

	status := metrics.StatusOf(err)
	u.metrics.RecordOperation(ctx, "balance", "balance_get", status)
	u.metrics.RecordDuration(ctx, "balance", "balance_get", time.Since(start), status)

	return balance, err
}

// Charge records metrics for balance top-ups.
func (u *balanceUseCaseWithMetrics) Charge(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	start := time.Now()
	balance, err := u.next.Charge(ctx, userID, amount)

	status := metrics.StatusOf(err)
	u.metrics.RecordOperation(ctx, "balance", "balance_charge", status)
	u.metrics.RecordDuration(ctx, "balance", "balance_charge", time.Since(start), status)

	return balance, err
}
