package dto

import (
	"time"

	"github.com/allisson/ordersaga/internal/balance/domain"
)

// BalanceResponse represents a balance in API responses.
type BalanceResponse struct {
	UserID    string     `json:"user_id"`
	Amount    int64      `json:"amount"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// MapBalanceToResponse converts a domain balance to its API representation.
func MapBalanceToResponse(b *domain.Balance) BalanceResponse {
	resp := BalanceResponse{UserID: b.UserID.String(), Amount: b.Amount}
	if !b.UpdatedAt.IsZero() {
		updatedAt := b.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
