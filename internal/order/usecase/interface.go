// Package usecase implements the order creation saga, its reconciliation of
// late completions and order queries.
package usecase

import (
	"context"

	"github.com/google/uuid"

	inventoryDomain "github.com/allisson/ordersaga/internal/inventory/domain"
	"github.com/allisson/ordersaga/internal/order/domain"
	outboxDomain "github.com/allisson/ordersaga/internal/outbox/domain"
)

// OrderRepository persists completed orders.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Order, error)
}

// OutboxEventRepository stores notifications published after commit.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// UserRepository answers whether a user exists.
type UserRepository interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// ProductRepository loads product details for validation.
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*inventoryDomain.Product, error)
}

// OrderItemInput is one requested order line.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput is an order request. UserCouponID is optional.
type CreateOrderInput struct {
	UserID       uuid.UUID
	Items        []OrderItemInput
	UserCouponID *uuid.UUID
}

// OrderUseCase creates and reads orders. CreateOrder either returns a
// completed order or a *domain.SagaFailure after every reservation it made has
// been compensated.
type OrderUseCase interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Order, error)
}
