// Package dto provides data transfer objects for the order HTTP layer.
package dto

import (
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/ordersaga/internal/order/usecase"
	appValidation "github.com/allisson/ordersaga/internal/validation"
)

// OrderItemRequest is one requested order line.
type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Validate checks if the order line is valid.
func (r OrderItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.Required.Error("product_id is required"), appValidation.UUID),
		validation.Field(&r.Quantity,
			validation.Required.Error("quantity is required"),
			validation.Min(1).Error("quantity must be positive"),
		),
	)
}

// CreateOrderRequest contains the parameters for placing an order.
type CreateOrderRequest struct {
	UserID       string             `json:"user_id"`
	Items        []OrderItemRequest `json:"items"`
	UserCouponID *string            `json:"user_coupon_id,omitempty"`
}

// Validate checks if the create order request is valid.
func (r *CreateOrderRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required.Error("user_id is required"), appValidation.UUID),
		validation.Field(&r.Items,
			validation.Required.Error("items must contain at least one line"),
			validation.Length(1, 100).Error("items must contain between 1 and 100 lines"),
		),
		validation.Field(&r.UserCouponID, validation.NilOrNotEmpty, appValidation.UUID),
	)
	return appValidation.WrapValidationError(err)
}

// ToCreateOrderInput converts a validated request into use case input.
func (r *CreateOrderRequest) ToCreateOrderInput() usecase.CreateOrderInput {
	input := usecase.CreateOrderInput{
		UserID: uuid.MustParse(r.UserID),
		Items:  make([]usecase.OrderItemInput, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		input.Items = append(input.Items, usecase.OrderItemInput{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
		})
	}
	if r.UserCouponID != nil {
		id := uuid.MustParse(*r.UserCouponID)
		input.UserCouponID = &id
	}
	return input
}
