package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/balance/domain"
)

// MemoryBalanceRepository keeps balances in process memory.
type MemoryBalanceRepository struct {
	mu       sync.Mutex
	balances map[uuid.UUID]domain.Balance
}

// NewMemoryBalanceRepository creates an empty MemoryBalanceRepository
func NewMemoryBalanceRepository() *MemoryBalanceRepository {
	return &MemoryBalanceRepository{balances: make(map[uuid.UUID]domain.Balance)}
}

// Get returns the user's balance, zero when none is stored.
func (r *MemoryBalanceRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[userID]
	if !ok {
		return &domain.Balance{UserID: userID}, nil
	}
	return &b, nil
}

// Deduct subtracts amount if the balance covers it.
func (r *MemoryBalanceRepository) Deduct(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[userID]
	if !ok || b.Amount < amount {
		return nil, domain.ErrInsufficientBalance
	}
	b.Amount -= amount
	b.UpdatedAt = time.Now().UTC()
	r.balances[userID] = b
	return &b, nil
}

// Credit adds amount, creating the balance on first use.
func (r *MemoryBalanceRepository) Credit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.balances[userID]
	b.UserID = userID
	b.Amount += amount
	b.UpdatedAt = time.Now().UTC()
	r.balances[userID] = b
	return &b, nil
}
