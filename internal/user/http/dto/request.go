// Package dto provides data transfer objects for the user HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/allisson/ordersaga/internal/user/usecase"
	appValidation "github.com/allisson/ordersaga/internal/validation"
)

// RegisterUserRequest is the body of POST /v1/users.
type RegisterUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate rejects missing fields and malformed emails before the use case runs.
func (r *RegisterUserRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
		),
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			appValidation.Email,
		),
	)
	return appValidation.WrapValidationError(err)
}

// ToRegisterUserInput converts the request to use case input.
func ToRegisterUserInput(req RegisterUserRequest) usecase.RegisterUserInput {
	return usecase.RegisterUserInput{Name: req.Name, Email: req.Email}
}
