package usecase

import (
	"context"
	"log/slog"

	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/eventbus"
	"github.com/allisson/ordersaga/internal/metrics"
)

const lateReason = "reservation completed after the order saga gave up"

// Reconciler undoes reservations whose success arrived after the saga timed
// out. It is installed as the correlation broker's late handler.
type Reconciler struct {
	publisher eventbus.Publisher
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
}

// NewReconciler creates a Reconciler that publishes restore requests on publisher.
func NewReconciler(publisher eventbus.Publisher, businessMetrics metrics.BusinessMetrics, logger *slog.Logger) *Reconciler {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &Reconciler{
		publisher: publisher,
		metrics:   businessMetrics,
		logger:    logger,
	}
}

// HandleLate publishes the restore request matching a late successful
// reservation. Restores are fire-and-forget; nothing waits for their
// completion. Late failures mutated nothing and are only recorded.
func (r *Reconciler) HandleLate(ctx context.Context, c event.Completion) {
	logger := r.logger.With(
		slog.String("correlation_id", c.Correlation()),
		slog.String("event_type", c.EventType()),
	)

	if !c.Succeeded() {
		logger.Info("late failed completion needs no reconciliation", slog.String("reason", c.FailureReason()))
		r.metrics.RecordLateCompletion(ctx, c.EventType(), "ignored")
		return
	}

	restore := restoreFor(c)
	if restore == nil {
		// A late restore completion: the compensation did eventually apply.
		logger.Warn("late restore completion received")
		r.metrics.RecordLateCompletion(ctx, c.EventType(), "ignored")
		return
	}

	if err := r.publisher.Publish(ctx, restore); err != nil {
		logger.Error("failed to reconcile late reservation",
			slog.Bool("manual_intervention", true),
			slog.Any("error", err),
		)
		r.metrics.RecordLateCompletion(ctx, c.EventType(), "error")
		return
	}

	logger.Warn("late reservation reverted",
		slog.String("restore_correlation_id", restore.Correlation()),
		slog.String("restore_type", restore.EventType()),
	)
	r.metrics.RecordLateCompletion(ctx, c.EventType(), "restored")
}

func restoreFor(c event.Completion) event.Request {
	envelope := event.Envelope{CorrelationID: event.NewCorrelationID()}
	switch done := c.(type) {
	case event.StockReservationCompleted:
		return event.StockRestoreRequested{
			Envelope:  envelope,
			ProductID: done.ProductID,
			Quantity:  done.Quantity,
			Reason:    lateReason,
		}
	case event.CouponUsageCompleted:
		return event.CouponRestoreRequested{
			Envelope:     envelope,
			UserID:       done.UserID,
			UserCouponID: done.UserCouponID,
			Reason:       lateReason,
		}
	case event.BalanceDeductionCompleted:
		return event.BalanceRestoreRequested{
			Envelope: envelope,
			UserID:   done.UserID,
			Amount:   done.Amount,
			Reason:   lateReason,
		}
	}
	return nil
}
