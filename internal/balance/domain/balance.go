// Package domain defines user balances and their errors.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/errors"
)

// Balance is the amount of money a user can spend on orders. A user without a
// stored balance has a balance of zero.
type Balance struct {
	UserID    uuid.UUID
	Amount    int64
	UpdatedAt time.Time
}

// Balance-specific error definitions.
var (
	// ErrInsufficientBalance indicates the balance is lower than the requested deduction.
	ErrInsufficientBalance = errors.Wrap(errors.ErrExhausted, "insufficient balance")

	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.Wrap(errors.ErrInvalidInput, "amount must be positive")

	// ErrChargeLimitExceeded indicates a top-up above the single charge limit.
	ErrChargeLimitExceeded = errors.Wrap(errors.ErrInvalidInput, "charge exceeds the single charge limit")
)
