package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	userUseCase "github.com/allisson/ordersaga/internal/user/usecase"
)

// RunCreateUser registers a user and prints its ID.
func RunCreateUser(
	ctx context.Context,
	useCase userUseCase.UseCase,
	logger *slog.Logger,
	w io.Writer,
	name, email, format string,
) error {
	user, err := useCase.Register(ctx, userUseCase.RegisterUserInput{Name: name, Email: email})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("user created", slog.String("user_id", user.ID.String()))

	return writeOutput(w, format,
		fmt.Sprintf("Created user %s (%s)", user.ID, user.Email),
		map[string]any{
			"id":    user.ID.String(),
			"name":  user.Name,
			"email": user.Email,
		},
	)
}
