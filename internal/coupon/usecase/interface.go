// Package usecase implements coupon issuance, coupon usage reservation and
// coupon administration.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/coupon/domain"
)

// CouponRepository defines coupon persistence. IncrementIssuedCount must be a
// single conditional update guarded by the issuance limits.
type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error)
	IncrementIssuedCount(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Coupon, error)
}

// UserCouponRepository defines user coupon persistence. MarkUsed must be a
// single conditional update.
type UserCouponRepository interface {
	Create(ctx context.Context, uc *domain.UserCoupon) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserCoupon, error)
	ExistsByUserAndCoupon(ctx context.Context, userID, couponID uuid.UUID) (bool, error)
	MarkUsed(ctx context.Context, id, userID uuid.UUID, now time.Time) (*domain.UserCoupon, error)
	MarkAvailable(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserRepository is the slice of user persistence issuance needs.
type UserRepository interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// IssuanceUseCase hands out coupons first come, first served.
type IssuanceUseCase interface {
	Issue(ctx context.Context, couponID, userID uuid.UUID) (*domain.UserCoupon, error)
}

// CreateCouponInput contains the data required to create a coupon campaign.
type CreateCouponInput struct {
	Name             string
	DiscountType     domain.DiscountType
	DiscountValue    int64
	MaxIssuanceCount int
	ValidFrom        time.Time
	ValidUntil       time.Time
}

// CouponUseCase defines coupon administration operations.
type CouponUseCase interface {
	Create(ctx context.Context, input CreateCouponInput) (*domain.Coupon, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Coupon, error)
	GetUserCoupon(ctx context.Context, id uuid.UUID) (*domain.UserCoupon, error)
}
