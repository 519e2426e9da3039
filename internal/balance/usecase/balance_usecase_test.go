package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ordersaga/internal/balance/domain"
	"github.com/allisson/ordersaga/internal/balance/repository"
	"github.com/allisson/ordersaga/internal/lock"
	userDomain "github.com/allisson/ordersaga/internal/user/domain"
	userRepository "github.com/allisson/ordersaga/internal/user/repository"
)

func TestBalanceUseCase(t *testing.T) {
	ctx := context.Background()
	users := userRepository.NewMemoryUserRepository()
	userID := newUser(t, users)
	uc := NewBalanceUseCase(
		repository.NewMemoryBalanceRepository(), users, lock.NewMemoryManager(discardLogger()), testLockOpts, 100000, discardLogger(),
	)

	t.Run("new user has zero balance", func(t *testing.T) {
		b, err := uc.Get(ctx, userID)
		require.NoError(t, err)
		assert.Zero(t, b.Amount)
	})

	t.Run("charge accumulates", func(t *testing.T) {
		_, err := uc.Charge(ctx, userID, 30000)
		require.NoError(t, err)
		b, err := uc.Charge(ctx, userID, 20000)
		require.NoError(t, err)
		assert.Equal(t, int64(50000), b.Amount)
	})

	t.Run("charge over the limit", func(t *testing.T) {
		_, err := uc.Charge(ctx, userID, 100001)
		assert.ErrorIs(t, err, domain.ErrChargeLimitExceeded)
	})

	t.Run("non-positive charge", func(t *testing.T) {
		_, err := uc.Charge(ctx, userID, -5)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := uc.Charge(ctx, uuid.Must(uuid.NewV7()), 100)
		assert.ErrorIs(t, err, userDomain.ErrUserNotFound)
		_, err = uc.Get(ctx, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, userDomain.ErrUserNotFound)
	})
}
