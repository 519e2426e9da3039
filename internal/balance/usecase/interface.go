// Package usecase implements balance deduction for the order saga and balance top-ups.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/balance/domain"
)

// BalanceRepository defines balance persistence. Deduct must be a single
// conditional update; Credit creates the balance on first use.
type BalanceRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	Deduct(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error)
}

// UserRepository is the slice of user persistence balances need.
type UserRepository interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// BalanceUseCase defines balance read and top-up operations.
type BalanceUseCase interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	Charge(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error)
}
