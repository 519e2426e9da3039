package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/balance/domain"
	"github.com/allisson/ordersaga/internal/lock"
	userDomain "github.com/allisson/ordersaga/internal/user/domain"
)

// balanceUseCase tops up balances under the same per-user lock the deduction
// handler takes, so a double-submitted charge is applied one at a time.
type balanceUseCase struct {
	repo      BalanceRepository
	users     UserRepository
	locks     lock.Manager
	lockOpts  lock.Options
	maxCharge int64
	logger    *slog.Logger
}

// NewBalanceUseCase creates a BalanceUseCase. A maxCharge of zero disables the
// single charge limit.
func NewBalanceUseCase(
	repo BalanceRepository,
	users UserRepository,
	locks lock.Manager,
	lockOpts lock.Options,
	maxCharge int64,
	logger *slog.Logger,
) BalanceUseCase {
	return &balanceUseCase{
		repo:      repo,
		users:     users,
		locks:     locks,
		lockOpts:  lockOpts,
		maxCharge: maxCharge,
		logger:    logger,
	}
}

// Get returns the user's balance.
func (uc *balanceUseCase) Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	if err := uc.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return uc.repo.Get(ctx, userID)
}

// Charge adds amount to the user's balance.
func (uc *balanceUseCase) Charge(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if uc.maxCharge > 0 && amount > uc.maxCharge {
		return nil, domain.ErrChargeLimitExceeded
	}
	if err := uc.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	var balance *domain.Balance
	err := lock.WithLock(ctx, uc.locks, balanceLockKey(userID), uc.lockOpts, func(ctx context.Context) error {
		var err error
		balance, err = uc.repo.Credit(ctx, userID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("balance charged",
		slog.String("user_id", userID.String()),
		slog.Int64("amount", amount),
		slog.Int64("balance", balance.Amount),
	)
	return balance, nil
}

func (uc *balanceUseCase) ensureUser(ctx context.Context, userID uuid.UUID) error {
	exists, err := uc.users.ExistsByID(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return userDomain.ErrUserNotFound
	}
	return nil
}
