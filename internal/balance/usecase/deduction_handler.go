package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/balance/domain"
	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/eventbus"
	"github.com/allisson/ordersaga/internal/lock"
)

func balanceLockKey(userID uuid.UUID) string {
	return "balance:" + userID.String()
}

// DeductionHandler consumes balance deduction and restore requests. Every
// mutation of a user's balance runs under that user's lock.
type DeductionHandler struct {
	repo      BalanceRepository
	locks     lock.Manager
	lockOpts  lock.Options
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewDeductionHandler creates a DeductionHandler.
func NewDeductionHandler(
	repo BalanceRepository,
	locks lock.Manager,
	lockOpts lock.Options,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *DeductionHandler {
	return &DeductionHandler{
		repo:      repo,
		locks:     locks,
		lockOpts:  lockOpts,
		publisher: publisher,
		logger:    logger,
	}
}

// Register subscribes the handler to its request types.
func (h *DeductionHandler) Register(sub eventbus.Subscriber) {
	sub.Subscribe(event.TypeBalanceDeductionRequested, h.HandleDeduction)
	sub.Subscribe(event.TypeBalanceRestoreRequested, h.HandleRestore)
}

// Deduct debits amount from the user's balance.
func (h *DeductionHandler) Deduct(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	return h.mutate(ctx, userID, amount, h.repo.Deduct)
}

// Restore credits amount back to the user's balance.
func (h *DeductionHandler) Restore(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	return h.mutate(ctx, userID, amount, h.repo.Credit)
}

func (h *DeductionHandler) mutate(
	ctx context.Context,
	userID uuid.UUID,
	amount int64,
	apply func(context.Context, uuid.UUID, int64) (*domain.Balance, error),
) (*domain.Balance, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var balance *domain.Balance
	err := lock.WithLock(ctx, h.locks, balanceLockKey(userID), h.lockOpts, func(ctx context.Context) error {
		var err error
		balance, err = apply(ctx, userID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// HandleDeduction processes a BalanceDeductionRequested event.
func (h *DeductionHandler) HandleDeduction(ctx context.Context, ev event.Event) error {
	req, ok := ev.(event.BalanceDeductionRequested)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	completion := event.BalanceDeductionCompleted{
		Outcome: event.Succeed(req.CorrelationID),
		UserID:  req.UserID,
		Amount:  req.Amount,
	}

	balance, err := h.Deduct(ctx, req.UserID, req.Amount)
	if err != nil {
		h.logger.Info("balance deduction rejected",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("user_id", req.UserID.String()),
			slog.Int64("amount", req.Amount),
			slog.Any("error", err),
		)
		completion.Outcome = event.Fail(req.CorrelationID, err)
	} else {
		completion.RemainingBalance = balance.Amount
	}

	return h.publisher.Publish(ctx, completion)
}

// HandleRestore processes a BalanceRestoreRequested event.
func (h *DeductionHandler) HandleRestore(ctx context.Context, ev event.Event) error {
	req, ok := ev.(event.BalanceRestoreRequested)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	completion := event.BalanceRestoreCompleted{
		Outcome: event.Succeed(req.CorrelationID),
		UserID:  req.UserID,
		Amount:  req.Amount,
	}

	balance, err := h.Restore(ctx, req.UserID, req.Amount)
	if err != nil {
		h.logger.Error("balance restore failed",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("user_id", req.UserID.String()),
			slog.Int64("amount", req.Amount),
			slog.String("reason", req.Reason),
			slog.Any("error", err),
		)
		completion.Outcome = event.Fail(req.CorrelationID, err)
	} else {
		h.logger.Info("balance restored",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("user_id", req.UserID.String()),
			slog.Int64("amount", req.Amount),
			slog.String("reason", req.Reason),
		)
		completion.RemainingBalance = balance.Amount
	}

	return h.publisher.Publish(ctx, completion)
}
