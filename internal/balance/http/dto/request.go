// Package dto provides data transfer objects for the balance HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/ordersaga/internal/validation"
)

// ChargeBalanceRequest contains the amount to add to a balance.
type ChargeBalanceRequest struct {
	Amount int64 `json:"amount"`
}

// Validate checks if the charge request is valid.
func (r *ChargeBalanceRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Amount,
			validation.Required.Error("amount is required"),
			validation.Min(int64(1)).Error("amount must be positive"),
		),
	)
	return appValidation.WrapValidationError(err)
}
