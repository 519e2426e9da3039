// Package domain defines coupon campaigns, issued user coupons and their errors.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/errors"
)

// DiscountType selects how a coupon's DiscountValue is applied.
type DiscountType string

const (
	// DiscountTypeFixed subtracts DiscountValue, capped at the order amount.
	DiscountTypeFixed DiscountType = "FIXED"
	// DiscountTypePercent subtracts DiscountValue percent of the order amount, truncated.
	DiscountTypePercent DiscountType = "PERCENT"
)

// Coupon is a discount campaign with a bounded number of issuances.
type Coupon struct {
	ID               uuid.UUID
	Name             string
	DiscountType     DiscountType
	DiscountValue    int64
	MaxIssuanceCount int
	IssuedCount      int
	ValidFrom        time.Time
	ValidUntil       time.Time
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Discount returns the amount taken off amount by this coupon.
func (c *Coupon) Discount(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	switch c.DiscountType {
	case DiscountTypeFixed:
		return min(c.DiscountValue, amount)
	case DiscountTypePercent:
		return amount * c.DiscountValue / 100
	default:
		return 0
	}
}

// CheckIssuable reports why the coupon cannot be issued at now, if it cannot.
func (c *Coupon) CheckIssuable(now time.Time) error {
	if !c.Active || now.Before(c.ValidFrom) || !now.Before(c.ValidUntil) {
		return ErrCouponNotIssuable
	}
	if c.IssuedCount >= c.MaxIssuanceCount {
		return ErrCouponSoldOut
	}
	return nil
}

// UserCouponStatus is the lifecycle state of an issued coupon.
type UserCouponStatus string

const (
	UserCouponStatusAvailable UserCouponStatus = "AVAILABLE"
	UserCouponStatusUsed      UserCouponStatus = "USED"
)

// UserCoupon is one coupon issued to one user.
type UserCoupon struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CouponID  uuid.UUID
	Status    UserCouponStatus
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Domain-specific errors for coupon operations.
var (
	ErrCouponNotFound     = errors.Wrap(errors.ErrNotFound, "coupon not found")
	ErrUserCouponNotFound = errors.Wrap(errors.ErrNotFound, "user coupon not found")

	// ErrCouponSoldOut indicates every issuance of the campaign has been handed out.
	ErrCouponSoldOut = errors.Wrap(errors.ErrExhausted, "coupon sold out")

	// ErrCouponNotIssuable indicates the campaign is inactive or outside its validity window.
	ErrCouponNotIssuable = errors.Wrap(errors.ErrExhausted, "coupon is not issuable")

	// ErrCouponAlreadyIssued indicates the user already holds a coupon of this campaign.
	ErrCouponAlreadyIssued = errors.Wrap(errors.ErrConflict, "coupon already issued to user")

	// ErrCouponNotUsable indicates the user coupon is used, expired or owned by someone else.
	ErrCouponNotUsable = errors.Wrap(errors.ErrExhausted, "coupon is not usable")

	ErrInvalidCoupon = errors.Wrap(errors.ErrInvalidInput, "invalid coupon")
)
