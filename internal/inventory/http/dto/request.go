// Package dto provides data transfer objects for the inventory HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/ordersaga/internal/validation"
)

// CreateProductRequest contains the parameters for creating a product.
type CreateProductRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

// Validate checks if the create product request is valid.
func (r *CreateProductRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&r.Price,
			validation.Required.Error("price is required"),
			validation.Min(int64(1)).Error("price must be positive"),
		),
		validation.Field(&r.Stock, validation.Min(0).Error("stock must not be negative")),
	)
	return appValidation.WrapValidationError(err)
}
