package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ordersaga/internal/coupon/domain"
)

func TestMemoryCouponRepository_IncrementIssuedCount(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	repo := NewMemoryCouponRepository()
	coupon := &domain.Coupon{
		ID:               uuid.Must(uuid.NewV7()),
		Name:             "Welcome",
		DiscountType:     domain.DiscountTypeFixed,
		DiscountValue:    1000,
		MaxIssuanceCount: 2,
		ValidFrom:        now.Add(-time.Hour),
		ValidUntil:       now.Add(time.Hour),
		Active:           true,
	}
	require.NoError(t, repo.Create(ctx, coupon))

	for i := 1; i <= 2; i++ {
		c, err := repo.IncrementIssuedCount(ctx, coupon.ID, now)
		require.NoError(t, err)
		assert.Equal(t, i, c.IssuedCount)
	}

	_, err := repo.IncrementIssuedCount(ctx, coupon.ID, now)
	assert.ErrorIs(t, err, domain.ErrCouponSoldOut)

	_, err = repo.IncrementIssuedCount(ctx, uuid.Must(uuid.NewV7()), now)
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
}

func TestMemoryUserCouponRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	repo := NewMemoryUserCouponRepository()
	owner := uuid.Must(uuid.NewV7())
	uc := &domain.UserCoupon{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    owner,
		CouponID:  uuid.Must(uuid.NewV7()),
		Status:    domain.UserCouponStatusAvailable,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, uc))

	dup := *uc
	dup.ID = uuid.Must(uuid.NewV7())
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrCouponAlreadyIssued)

	exists, err := repo.ExistsByUserAndCoupon(ctx, owner, uc.CouponID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.MarkUsed(ctx, uc.ID, uuid.Must(uuid.NewV7()), now)
	assert.ErrorIs(t, err, domain.ErrCouponNotUsable, "foreign user")

	_, err = repo.MarkUsed(ctx, uc.ID, owner, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrCouponNotUsable, "expired")

	used, err := repo.MarkUsed(ctx, uc.ID, owner, now)
	require.NoError(t, err)
	assert.Equal(t, domain.UserCouponStatusUsed, used.Status)

	_, err = repo.MarkUsed(ctx, uc.ID, owner, now)
	assert.ErrorIs(t, err, domain.ErrCouponNotUsable, "already used")

	restored, err := repo.MarkAvailable(ctx, uc.ID)
	require.NoError(t, err)
	assert.True(t, restored)

	restored, err = repo.MarkAvailable(ctx, uc.ID)
	require.NoError(t, err)
	assert.False(t, restored)

	restored, err = repo.MarkAvailable(ctx, uuid.Must(uuid.NewV7()))
	require.NoError(t, err)
	assert.False(t, restored)
}
