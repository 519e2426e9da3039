package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/outbox/domain"
)

// MemoryOutboxEventRepository keeps outbox events in process memory, in insertion order.
type MemoryOutboxEventRepository struct {
	mu     sync.Mutex
	order  []uuid.UUID
	events map[uuid.UUID]domain.OutboxEvent
}

// NewMemoryOutboxEventRepository creates an empty MemoryOutboxEventRepository
func NewMemoryOutboxEventRepository() *MemoryOutboxEventRepository {
	return &MemoryOutboxEventRepository{events: make(map[uuid.UUID]domain.OutboxEvent)}
}

// Create inserts a new outbox event
func (r *MemoryOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "outbox event already exists")
	}
	now := time.Now().UTC()
	stored := *event
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.events[event.ID] = stored
	r.order = append(r.order, event.ID)
	return nil
}

// GetPendingEvents retrieves pending events with limit, oldest first
func (r *MemoryOutboxEventRepository) GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*domain.OutboxEvent
	for _, id := range r.order {
		if len(pending) == limit {
			break
		}
		if e := r.events[id]; e.Status == domain.OutboxEventStatusPending {
			pending = append(pending, &e)
		}
	}
	return pending, nil
}

// Update updates an outbox event
func (r *MemoryOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return apperrors.Wrap(apperrors.ErrNotFound, "outbox event not found")
	}
	stored := *event
	stored.UpdatedAt = time.Now().UTC()
	r.events[event.ID] = stored
	return nil
}

// DeleteProcessedBefore removes processed events whose ProcessedAt precedes before.
func (r *MemoryOutboxEventRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	r.order = slices.DeleteFunc(r.order, func(id uuid.UUID) bool {
		e := r.events[id]
		if e.Status != domain.OutboxEventStatusProcessed || e.ProcessedAt == nil || !e.ProcessedAt.Before(before) {
			return false
		}
		delete(r.events, id)
		deleted++
		return true
	})
	return deleted, nil
}

// All returns every stored event, oldest first.
func (r *MemoryOutboxEventRepository) All() []domain.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]domain.OutboxEvent, 0, len(r.order))
	for _, id := range slices.Clone(r.order) {
		all = append(all, r.events[id])
	}
	return all
}
