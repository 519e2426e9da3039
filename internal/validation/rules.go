// Package validation holds the jellydator rules shared by request DTOs and use cases.
package validation

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/ordersaga/internal/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// WrapValidationError marks a validation failure as ErrInvalidInput so the
// transport layer maps it to 422.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank rejects whitespace-only strings. Empty strings are left to Required.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

var UUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// OneOfFold accepts strings equal to one of values, ignoring case.
func OneOfFold(values ...string) validation.StringRule {
	return validation.NewStringRuleWithError(
		func(s string) bool {
			for _, v := range values {
				if strings.EqualFold(s, v) {
					return true
				}
			}
			return false
		},
		validation.NewError("validation_one_of", "must be one of "+strings.Join(values, ", ")),
	)
}
