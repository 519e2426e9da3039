package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/order/domain"
)

// MemoryOrderRepository keeps orders in process memory.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
	// failNext makes the next Create fail; tests use it to drive persistence failures.
	failNext error
}

// NewMemoryOrderRepository creates an empty MemoryOrderRepository
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[uuid.UUID]domain.Order)}
}

// FailNextCreate makes the next Create return err.
func (r *MemoryOrderRepository) FailNextCreate(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = err
}

// Create stores the order and its items
func (r *MemoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return err
	}
	if _, ok := r.orders[order.ID]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "order already exists")
	}
	stored := *order
	stored.Items = slices.Clone(order.Items)
	r.orders[order.ID] = stored
	return nil
}

// GetByID retrieves an order with its items
func (r *MemoryOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

// ListByUser returns a user's orders, newest first.
func (r *MemoryOrderRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			o.Items = slices.Clone(o.Items)
			matched = append(matched, &o)
		}
	}
	slices.SortFunc(matched, func(a, b *domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})

	if offset >= len(matched) {
		return []*domain.Order{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}
