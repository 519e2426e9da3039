package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/inventory/domain"
)

// MemoryProductRepository keeps products in process memory. Every stock
// mutation is a check-and-set under one mutex.
type MemoryProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
}

// NewMemoryProductRepository creates an empty MemoryProductRepository
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[uuid.UUID]domain.Product)}
}

// Create inserts a new product
func (r *MemoryProductRepository) Create(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "product already exists")
	}
	r.products[product.ID] = *product
	return nil
}

// GetByID retrieves a product by ID
func (r *MemoryProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

// DecreaseStock subtracts quantity if enough stock is left.
func (r *MemoryProductRepository) DecreaseStock(ctx context.Context, id uuid.UUID, quantity int) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if p.Stock < quantity {
		return nil, domain.ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return &p, nil
}

// IncreaseStock adds quantity back to the product.
func (r *MemoryProductRepository) IncreaseStock(ctx context.Context, id uuid.UUID, quantity int) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	p.Stock += quantity
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return &p, nil
}
