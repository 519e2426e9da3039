package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/eventbus"
	"github.com/allisson/ordersaga/internal/inventory/domain"
)

// StockHandler consumes stock reservation and restore requests and answers each
// with exactly one completion carrying the request's correlation id.
type StockHandler struct {
	repo      ProductRepository
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewStockHandler creates a StockHandler.
func NewStockHandler(repo ProductRepository, publisher eventbus.Publisher, logger *slog.Logger) *StockHandler {
	return &StockHandler{repo: repo, publisher: publisher, logger: logger}
}

// Register subscribes the handler to its request types.
func (h *StockHandler) Register(sub eventbus.Subscriber) {
	sub.Subscribe(event.TypeStockReservationRequested, h.HandleReservation)
	sub.Subscribe(event.TypeStockRestoreRequested, h.HandleRestore)
}

// Reserve decrements stock atomically.
func (h *StockHandler) Reserve(ctx context.Context, productID uuid.UUID, quantity int) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return h.repo.DecreaseStock(ctx, productID, quantity)
}

// Restore puts quantity back into stock. HandleRestore treats a missing
// product as nothing to restore.
func (h *StockHandler) Restore(ctx context.Context, productID uuid.UUID, quantity int) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return h.repo.IncreaseStock(ctx, productID, quantity)
}

// HandleReservation processes a StockReservationRequested event.
func (h *StockHandler) HandleReservation(ctx context.Context, ev event.Event) error {
	req, ok := ev.(event.StockReservationRequested)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	completion := event.StockReservationCompleted{
		Outcome:   event.Succeed(req.CorrelationID),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}

	product, err := h.Reserve(ctx, req.ProductID, req.Quantity)
	if err != nil {
		h.logger.Info("stock reservation rejected",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("product_id", req.ProductID.String()),
			slog.Int("quantity", req.Quantity),
			slog.Any("error", err),
		)
		completion.Outcome = event.Fail(req.CorrelationID, err)
	} else {
		completion.ProductName = product.Name
		completion.UnitPrice = product.Price
	}

	return h.publisher.Publish(ctx, completion)
}

// HandleRestore processes a StockRestoreRequested event.
func (h *StockHandler) HandleRestore(ctx context.Context, ev event.Event) error {
	req, ok := ev.(event.StockRestoreRequested)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	completion := event.StockRestoreCompleted{
		Outcome:   event.Succeed(req.CorrelationID),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}

	_, err := h.Restore(ctx, req.ProductID, req.Quantity)
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		h.logger.Warn("stock restore found no product, nothing to restore",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("product_id", req.ProductID.String()),
			slog.Int("quantity", req.Quantity),
			slog.String("reason", req.Reason),
		)
	case err != nil:
		h.logger.Error("stock restore failed",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("product_id", req.ProductID.String()),
			slog.Int("quantity", req.Quantity),
			slog.String("reason", req.Reason),
			slog.Any("error", err),
		)
		completion.Outcome = event.Fail(req.CorrelationID, err)
	default:
		h.logger.Info("stock restored",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("product_id", req.ProductID.String()),
			slog.Int("quantity", req.Quantity),
			slog.String("reason", req.Reason),
		)
	}

	return h.publisher.Publish(ctx, completion)
}
