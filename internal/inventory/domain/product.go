// Package domain defines the inventory entities and errors.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/errors"
)

// Product is a sellable item with a stock counter. Prices are in the smallest
// currency unit.
type Product struct {
	ID        uuid.UUID
	Name      string
	Price     int64
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Domain-specific errors for inventory operations.
var (
	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = errors.Wrap(errors.ErrNotFound, "product not found")

	// ErrInsufficientStock indicates the product has fewer units than requested.
	ErrInsufficientStock = errors.Wrap(errors.ErrExhausted, "insufficient stock")

	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.Wrap(errors.ErrInvalidInput, "quantity must be positive")
)
