package dto

import (
	"time"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	"github.com/allisson/ordersaga/internal/coupon/usecase"
)

// CouponResponse represents a coupon campaign in API responses.
type CouponResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	DiscountType     string    `json:"discount_type"`
	DiscountValue    int64     `json:"discount_value"`
	MaxIssuanceCount int       `json:"max_issuance_count"`
	IssuedCount      int       `json:"issued_count"`
	ValidFrom        time.Time `json:"valid_from"`
	ValidUntil       time.Time `json:"valid_until"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserCouponResponse represents a coupon held by a user.
type UserCouponResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	CouponID  string     `json:"coupon_id"`
	Status    string     `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToCreateCouponInput converts a CreateCouponRequest to use case input.
func ToCreateCouponInput(req CreateCouponRequest) usecase.CreateCouponInput {
	input := usecase.CreateCouponInput{
		Name:             req.Name,
		DiscountType:     domain.DiscountType(req.DiscountType),
		DiscountValue:    req.DiscountValue,
		MaxIssuanceCount: req.MaxIssuanceCount,
		ValidUntil:       req.ValidUntil,
	}
	if req.ValidFrom != nil {
		input.ValidFrom = *req.ValidFrom
	}
	return input
}

// MapCouponToResponse converts a domain coupon to its API representation.
func MapCouponToResponse(c *domain.Coupon) CouponResponse {
	return CouponResponse{
		ID:               c.ID.String(),
		Name:             c.Name,
		DiscountType:     string(c.DiscountType),
		DiscountValue:    c.DiscountValue,
		MaxIssuanceCount: c.MaxIssuanceCount,
		IssuedCount:      c.IssuedCount,
		ValidFrom:        c.ValidFrom,
		ValidUntil:       c.ValidUntil,
		Active:           c.Active,
		CreatedAt:        c.CreatedAt,
	}
}

// MapUserCouponToResponse converts a domain user coupon to its API representation.
func MapUserCouponToResponse(uc *domain.UserCoupon) UserCouponResponse {
	return UserCouponResponse{
		ID:        uc.ID.String(),
		UserID:    uc.UserID.String(),
		CouponID:  uc.CouponID.String(),
		Status:    string(uc.Status),
		ExpiresAt: uc.ExpiresAt,
		UsedAt:    uc.UsedAt,
		CreatedAt: uc.CreatedAt,
	}
}
