package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoupon_Discount(t *testing.T) {
	tests := []struct {
		name     string
		coupon   Coupon
		amount   int64
		expected int64
	}{
		{name: "fixed", coupon: Coupon{DiscountType: DiscountTypeFixed, DiscountValue: 1000}, amount: 20000, expected: 1000},
		{name: "fixed capped at amount", coupon: Coupon{DiscountType: DiscountTypeFixed, DiscountValue: 5000}, amount: 3000, expected: 3000},
		{name: "percent", coupon: Coupon{DiscountType: DiscountTypePercent, DiscountValue: 10}, amount: 20000, expected: 2000},
		{name: "percent truncates", coupon: Coupon{DiscountType: DiscountTypePercent, DiscountValue: 15}, amount: 999, expected: 149},
		{name: "zero amount", coupon: Coupon{DiscountType: DiscountTypeFixed, DiscountValue: 1000}, amount: 0, expected: 0},
		{name: "unknown type", coupon: Coupon{DiscountType: "BOGUS", DiscountValue: 1000}, amount: 5000, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.coupon.Discount(tt.amount))
		})
	}
}

func TestCoupon_CheckIssuable(t *testing.T) {
	now := time.Now().UTC()
	base := Coupon{
		Active:           true,
		MaxIssuanceCount: 3,
		IssuedCount:      1,
		ValidFrom:        now.Add(-time.Hour),
		ValidUntil:       now.Add(time.Hour),
	}

	assert.NoError(t, base.CheckIssuable(now))

	inactive := base
	inactive.Active = false
	assert.ErrorIs(t, inactive.CheckIssuable(now), ErrCouponNotIssuable)

	notStarted := base
	notStarted.ValidFrom = now.Add(time.Minute)
	assert.ErrorIs(t, notStarted.CheckIssuable(now), ErrCouponNotIssuable)

	ended := base
	ended.ValidUntil = now
	assert.ErrorIs(t, ended.CheckIssuable(now), ErrCouponNotIssuable)

	soldOut := base
	soldOut.IssuedCount = 3
	assert.ErrorIs(t, soldOut.CheckIssuable(now), ErrCouponSoldOut)
}
