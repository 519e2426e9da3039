package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	apperrors "github.com/allisson/ordersaga/internal/errors"
)

// MemoryCouponRepository keeps coupons in process memory.
type MemoryCouponRepository struct {
	mu      sync.Mutex
	coupons map[uuid.UUID]domain.Coupon
}

// NewMemoryCouponRepository creates an empty MemoryCouponRepository
func NewMemoryCouponRepository() *MemoryCouponRepository {
	return &MemoryCouponRepository{coupons: make(map[uuid.UUID]domain.Coupon)}
}

// Create inserts a new coupon
func (r *MemoryCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coupons[coupon.ID]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "coupon already exists")
	}
	r.coupons[coupon.ID] = *coupon
	return nil
}

// GetByID retrieves a coupon by ID
func (r *MemoryCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	return &c, nil
}

// IncrementIssuedCount bumps issued_count while the coupon is still issuable.
func (r *MemoryCouponRepository) IncrementIssuedCount(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	if err := c.CheckIssuable(now); err != nil {
		return nil, err
	}
	c.IssuedCount++
	c.UpdatedAt = now
	r.coupons[id] = c
	return &c, nil
}

// MemoryUserCouponRepository keeps user coupons in process memory.
type MemoryUserCouponRepository struct {
	mu      sync.Mutex
	coupons map[uuid.UUID]domain.UserCoupon
}

// NewMemoryUserCouponRepository creates an empty MemoryUserCouponRepository
func NewMemoryUserCouponRepository() *MemoryUserCouponRepository {
	return &MemoryUserCouponRepository{coupons: make(map[uuid.UUID]domain.UserCoupon)}
}

// Create inserts a new user coupon, enforcing one coupon per user and campaign.
func (r *MemoryUserCouponRepository) Create(ctx context.Context, uc *domain.UserCoupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.coupons {
		if existing.UserID == uc.UserID && existing.CouponID == uc.CouponID {
			return domain.ErrCouponAlreadyIssued
		}
	}
	r.coupons[uc.ID] = *uc
	return nil
}

// GetByID retrieves a user coupon by ID
func (r *MemoryUserCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserCoupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uc, ok := r.coupons[id]
	if !ok {
		return nil, domain.ErrUserCouponNotFound
	}
	return &uc, nil
}

// ExistsByUserAndCoupon reports whether userID already holds a coupon of couponID.
func (r *MemoryUserCouponRepository) ExistsByUserAndCoupon(ctx context.Context, userID, couponID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, uc := range r.coupons {
		if uc.UserID == userID && uc.CouponID == couponID {
			return true, nil
		}
	}
	return false, nil
}

// MarkUsed moves an AVAILABLE, unexpired coupon owned by userID to USED.
func (r *MemoryUserCouponRepository) MarkUsed(ctx context.Context, id, userID uuid.UUID, now time.Time) (*domain.UserCoupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uc, ok := r.coupons[id]
	if !ok {
		return nil, domain.ErrUserCouponNotFound
	}
	if uc.UserID != userID || uc.Status != domain.UserCouponStatusAvailable || !now.Before(uc.ExpiresAt) {
		return nil, domain.ErrCouponNotUsable
	}
	uc.Status = domain.UserCouponStatusUsed
	uc.UsedAt = &now
	uc.UpdatedAt = now
	r.coupons[id] = uc
	return &uc, nil
}

// MarkAvailable reverts a USED coupon. It reports false when there was nothing to revert.
func (r *MemoryUserCouponRepository) MarkAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uc, ok := r.coupons[id]
	if !ok || uc.Status != domain.UserCouponStatusUsed {
		return false, nil
	}
	uc.Status = domain.UserCouponStatusAvailable
	uc.UsedAt = nil
	uc.UpdatedAt = time.Now().UTC()
	r.coupons[id] = uc
	return true, nil
}
