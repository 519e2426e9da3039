// Package dto provides data transfer objects for the coupon HTTP layer.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	appValidation "github.com/allisson/ordersaga/internal/validation"
)

// CreateCouponRequest contains the parameters for creating a coupon campaign.
type CreateCouponRequest struct {
	Name             string     `json:"name"`
	DiscountType     string     `json:"discount_type"`
	DiscountValue    int64      `json:"discount_value"`
	MaxIssuanceCount int        `json:"max_issuance_count"`
	ValidFrom        *time.Time `json:"valid_from,omitempty"`
	ValidUntil       time.Time  `json:"valid_until"`
}

// Validate checks if the create coupon request is valid. Cross-field rules
// (percent ceiling, window ordering) are enforced by the use case.
func (r *CreateCouponRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&r.DiscountType,
			validation.Required.Error("discount_type is required"),
			appValidation.OneOfFold(string(domain.DiscountTypeFixed), string(domain.DiscountTypePercent)).
				Error("discount_type must be FIXED or PERCENT"),
		),
		validation.Field(&r.DiscountValue,
			validation.Required.Error("discount_value is required"),
			validation.Min(int64(1)).Error("discount_value must be positive"),
		),
		validation.Field(&r.MaxIssuanceCount,
			validation.Required.Error("max_issuance_count is required"),
			validation.Min(1).Error("max_issuance_count must be positive"),
		),
		validation.Field(&r.ValidUntil, validation.Required.Error("valid_until is required")),
	)
	return appValidation.WrapValidationError(err)
}

// IssueCouponRequest names the user receiving a coupon.
type IssueCouponRequest struct {
	UserID string `json:"user_id"`
}

// Validate checks if the issue coupon request is valid.
func (r *IssueCouponRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required.Error("user_id is required"), appValidation.UUID),
	)
	return appValidation.WrapValidationError(err)
}
