// Package domain defines the customer entity referenced by orders, coupons and balances.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/errors"
)

// User is a customer. Email is unique and stored lower-cased.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrUserNotFound      = errors.Wrap(errors.ErrNotFound, "user not found")
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")
)

// NewUser builds a user with a fresh time-ordered id. Name is trimmed and
// email is trimmed and lower-cased.
func NewUser(name, email string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail returns the form emails are compared and stored in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
