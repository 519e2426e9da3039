package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	apperrors "github.com/allisson/ordersaga/internal/errors"
	appValidation "github.com/allisson/ordersaga/internal/validation"
)

type couponUseCase struct {
	coupons     CouponRepository
	userCoupons UserCouponRepository
}

// NewCouponUseCase creates a CouponUseCase.
func NewCouponUseCase(coupons CouponRepository, userCoupons UserCouponRepository) CouponUseCase {
	return &couponUseCase{coupons: coupons, userCoupons: userCoupons}
}

func validateCreateCouponInput(input CreateCouponInput) error {
	maxValue := int64(0)
	if input.DiscountType == domain.DiscountTypePercent {
		maxValue = 100
	}

	rules := []validation.Rule{
		validation.Required.Error("discount value is required"),
		validation.Min(int64(1)).Error("discount value must be positive"),
	}
	if maxValue > 0 {
		rules = append(rules, validation.Max(maxValue).Error("percent discount must not exceed 100"))
	}

	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.DiscountType,
			validation.Required.Error("discount type is required"),
			validation.In(domain.DiscountTypeFixed, domain.DiscountTypePercent).Error("discount type must be FIXED or PERCENT"),
		),
		validation.Field(&input.DiscountValue, rules...),
		validation.Field(&input.MaxIssuanceCount,
			validation.Required.Error("max issuance count is required"),
			validation.Min(1).Error("max issuance count must be positive"),
		),
		validation.Field(&input.ValidUntil, validation.Required.Error("valid until is required")),
	)
	if err != nil {
		return appValidation.WrapValidationError(err)
	}
	if !input.ValidUntil.After(input.ValidFrom) {
		return apperrors.Wrap(domain.ErrInvalidCoupon, "valid until must be after valid from")
	}
	return nil
}

// Create validates and persists a coupon campaign. A zero ValidFrom starts it now.
func (uc *couponUseCase) Create(ctx context.Context, input CreateCouponInput) (*domain.Coupon, error) {
	now := time.Now().UTC()
	if input.ValidFrom.IsZero() {
		input.ValidFrom = now
	}
	input.Name = strings.TrimSpace(input.Name)
	input.DiscountType = domain.DiscountType(strings.ToUpper(string(input.DiscountType)))

	if err := validateCreateCouponInput(input); err != nil {
		return nil, err
	}

	coupon := &domain.Coupon{
		ID:               uuid.Must(uuid.NewV7()),
		Name:             input.Name,
		DiscountType:     input.DiscountType,
		DiscountValue:    input.DiscountValue,
		MaxIssuanceCount: input.MaxIssuanceCount,
		ValidFrom:        input.ValidFrom.UTC(),
		ValidUntil:       input.ValidUntil.UTC(),
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.coupons.Create(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Get retrieves a coupon campaign.
func (uc *couponUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	return uc.coupons.GetByID(ctx, id)
}

// GetUserCoupon retrieves an issued coupon.
func (uc *couponUseCase) GetUserCoupon(ctx context.Context, id uuid.UUID) (*domain.UserCoupon, error) {
	return uc.userCoupons.GetByID(ctx, id)
}
