package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/metrics"
	"github.com/allisson/ordersaga/internal/order/domain"
)

// orderUseCaseWithMetrics decorates OrderUseCase with metrics instrumentation.
type orderUseCaseWithMetrics struct {
	next    OrderUseCase
	metrics metrics.BusinessMetrics
}

// NewOrderUseCaseWithMetrics wraps an OrderUseCase with metrics recording.
func NewOrderUseCaseWithMetrics(useCase OrderUseCase, m metrics.BusinessMetrics) OrderUseCase {
	return &orderUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// CreateOrder records metrics for saga runs.
func (u *orderUseCaseWithMetrics) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	start := time.Now()
	order, err := u.next.CreateOrder(ctx, input)

	status := metrics.StatusOf(err)
	u.metrics.RecordOperation(ctx, "order", "order_create", status)
	u.metrics.RecordDuration(ctx, "order", "order_create", time.Since(start), status)

	return order, err
}

// Get records metrics for order lookup.
func (u *orderUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	start := time.Now()
	order, err := u.next.Get(ctx, id)

	status := metrics.StatusOf(err)
	u.metrics.RecordOperation(ctx, "order", "order_get", status)
	u.metrics.RecordDuration(ctx, "order", "order_get", time.Since(start), status)

	return order, err
}

// ListByUser records metrics for order listing.
func (u *orderUseCaseWithMetrics) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Order, error) {
	start := time.Now()
	orders, err := u.next.ListByUser(ctx, userID, offset, limit)

	status := metrics.StatusOf(err)
	u.metrics.RecordOperation(ctx, "order", "order_list", status)
	u.metrics.RecordDuration(ctx, "order", "order_list", time.Since(start), status)

	return orders, err
}
