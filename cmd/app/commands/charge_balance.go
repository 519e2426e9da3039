package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	balanceUseCase "github.com/allisson/ordersaga/internal/balance/usecase"
)

// RunChargeBalance tops up a user's balance.
func RunChargeBalance(
	ctx context.Context,
	useCase balanceUseCase.BalanceUseCase,
	logger *slog.Logger,
	w io.Writer,
	userIDStr string,
	amount int64,
	format string,
) error {
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	balance, err := useCase.Charge(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to charge balance: %w", err)
	}

	logger.Info("balance charged",
		slog.String("user_id", userID.String()),
		slog.Int64("balance", balance.Amount),
	)

	return writeOutput(w, format,
		fmt.Sprintf("Balance of user %s is now %d", userID, balance.Amount),
		map[string]any{
			"user_id": userID.String(),
			"amount":  balance.Amount,
		},
	)
}
