// Package usecase implements stock reservation and product management.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/inventory/domain"
)

// ProductRepository defines product persistence. DecreaseStock must be a single
// conditional mutation that fails with domain.ErrInsufficientStock instead of
// driving stock negative.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	DecreaseStock(ctx context.Context, id uuid.UUID, quantity int) (*domain.Product, error)
	IncreaseStock(ctx context.Context, id uuid.UUID, quantity int) (*domain.Product, error)
}

// CreateProductInput contains the data required to create a product.
type CreateProductInput struct {
	Name  string
	Price int64
	Stock int
}

// ProductUseCase defines product management operations.
type ProductUseCase interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}
