// Package domain defines orders, the order saga states and saga failures.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/errors"
)

// OrderStatus is the persisted status of an order. Only completed sagas are persisted.
type OrderStatus string

// OrderStatusCompleted marks an order whose reservations all succeeded.
const OrderStatusCompleted OrderStatus = "COMPLETED"

// OrderItem is one line of an order, priced at reservation time.
type OrderItem struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   int64
}

// Subtotal returns UnitPrice times Quantity.
func (i OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Order is a completed purchase.
type Order struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Items          []OrderItem
	TotalAmount    int64
	DiscountAmount int64
	FinalAmount    int64
	UserCouponID   *uuid.UUID
	Status         OrderStatus
	CreatedAt      time.Time
}

// Order-specific error definitions.
var (
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")

	// ErrEmptyOrder indicates an order without items.
	ErrEmptyOrder = errors.Wrap(errors.ErrInvalidInput, "order must contain at least one item")

	// ErrInvalidItem indicates an item with a missing product or a non-positive quantity.
	ErrInvalidItem = errors.Wrap(errors.ErrInvalidInput, "order items need a product and a positive quantity")
)
