package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/allisson/ordersaga/internal/correlation"
	"github.com/allisson/ordersaga/internal/database"
	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/metrics"
	"github.com/allisson/ordersaga/internal/order/domain"
	outboxDomain "github.com/allisson/ordersaga/internal/outbox/domain"
	userDomain "github.com/allisson/ordersaga/internal/user/domain"
)

const tracerName = "github.com/allisson/ordersaga/internal/order"

// Config bounds the order saga.
type Config struct {
	// StepTimeout is how long each reservation waits for its completion.
	StepTimeout time.Duration
	// RestoreTimeout is how long each compensation waits for its completion.
	RestoreTimeout time.Duration
	// MaxConcurrency caps the number of sagas in flight.
	MaxConcurrency int
}

// OrderSaga coordinates order creation across stock, coupon and balance.
// Reservations run strictly in that order through the correlation broker; each
// committed reservation pushes its compensation, and any failure unwinds the
// stack before the failure is returned.
type OrderSaga struct {
	config    Config
	requester correlation.Requester
	txManager database.TxManager
	orders    OrderRepository
	outbox    OutboxEventRepository
	users     UserRepository
	products  ProductRepository
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
	tracer    trace.Tracer
	sem       *semaphore.Weighted
	now       func() time.Time
}

// NewOrderSaga creates an OrderSaga.
func NewOrderSaga(
	config Config,
	requester correlation.Requester,
	txManager database.TxManager,
	orders OrderRepository,
	outbox OutboxEventRepository,
	users UserRepository,
	products ProductRepository,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *OrderSaga {
	if config.StepTimeout <= 0 {
		config.StepTimeout = 5 * time.Second
	}
	if config.RestoreTimeout <= 0 {
		config.RestoreTimeout = 3 * time.Second
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 64
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &OrderSaga{
		config:    config,
		requester: requester,
		txManager: txManager,
		orders:    orders,
		outbox:    outbox,
		users:     users,
		products:  products,
		metrics:   businessMetrics,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		sem:       semaphore.NewWeighted(int64(config.MaxConcurrency)),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// sagaRun is the state of one CreateOrder call. It lives on the caller's stack
// and is never shared.
type sagaRun struct {
	input    CreateOrderInput
	orderID  uuid.UUID
	state    domain.SagaState
	items    []domain.OrderItem
	total    int64
	discount int64
	final    int64
	order    *domain.Order
	stack    compensationStack
	logger   *slog.Logger
}

type sagaStep struct {
	state domain.SagaState
	run   func(ctx context.Context, run *sagaRun) error
}

// CreateOrder runs the saga. On failure the returned error is a
// *domain.SagaFailure and every reservation made has been compensated.
func (s *OrderSaga) CreateOrder(ctx context.Context, input CreateOrderInput) (order *domain.Order, err error) {
	if err := s.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	run := &sagaRun{
		input:   input,
		orderID: uuid.Must(uuid.NewV7()),
		state:   domain.SagaStateValidating,
	}
	run.logger = s.logger.With(
		slog.String("order_id", run.orderID.String()),
		slog.String("user_id", input.UserID.String()),
	)

	ctx, span := s.tracer.Start(ctx, "order.saga", trace.WithAttributes(
		attribute.String("order.id", run.orderID.String()),
		attribute.Int("order.items", len(input.Items)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			run.logger.Error("order saga panicked",
				slog.String("state", string(run.state)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			order = nil
			err = s.fail(ctx, run, apperrors.Wrap(apperrors.ErrInternal, "unexpected failure while creating order"))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, apperrors.Message(err))
		}
	}()

	steps := []sagaStep{
		{domain.SagaStateValidating, s.validate},
		{domain.SagaStateReservingStock, s.reserveStock},
		{domain.SagaStateApplyingCoupon, s.applyCoupon},
		{domain.SagaStateDeductingBalance, s.deductBalance},
		{domain.SagaStatePersisting, s.persist},
	}
	for _, step := range steps {
		run.state = step.state
		if err := s.traced(ctx, run, step); err != nil {
			return nil, s.fail(ctx, run, err)
		}
	}
	run.state = domain.SagaStateCompleted

	run.logger.Info("order completed",
		slog.Int64("total_amount", run.total),
		slog.Int64("discount_amount", run.discount),
		slog.Int64("final_amount", run.final),
	)
	return run.order, nil
}

// acquireSlot waits for a free saga slot. Running out of time while waiting is
// reported as busy; a cancelled caller gets its cancellation back instead.
func (s *OrderSaga) acquireSlot(ctx context.Context) error {
	err := s.sem.Acquire(ctx, 1)
	switch {
	case err == nil:
		return nil
	case apperrors.Is(err, context.Canceled):
		return &domain.SagaFailure{
			State: domain.SagaStateValidating,
			Err:   fmt.Errorf("order request canceled while waiting for a slot: %w", err),
		}
	default:
		return &domain.SagaFailure{
			State: domain.SagaStateValidating,
			Err:   apperrors.Wrap(apperrors.ErrBusy, "too many orders in progress"),
		}
	}
}

// Get returns a persisted order.
func (s *OrderSaga) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListByUser returns a page of the user's orders, newest first.
func (s *OrderSaga) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, userID, offset, limit)
}

func (s *OrderSaga) traced(ctx context.Context, run *sagaRun, step sagaStep) error {
	ctx, span := s.tracer.Start(ctx, "order.saga."+strings.ToLower(string(step.state)))
	defer span.End()

	err := step.run(ctx, run)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.Message(err))
	}
	return err
}

// fail unwinds the compensation stack and builds the saga failure. Compensations
// run on a context detached from the caller's cancellation.
func (s *OrderSaga) fail(ctx context.Context, run *sagaRun, cause error) error {
	failedIn := run.state
	if apperrors.Code(cause) == apperrors.CodeInternal && !apperrors.Is(cause, apperrors.ErrInternal) {
		run.logger.Error("order saga fault", slog.String("state", string(failedIn)), slog.Any("error", cause))
		cause = apperrors.Wrap(apperrors.ErrInternal, "order could not be completed")
	}
	reason := apperrors.Message(cause)

	msg := "order saga failed"
	if apperrors.Is(cause, apperrors.ErrTimeout) {
		msg = "order saga step timed out, reservation outcome unknown"
	}
	run.logger.Warn(msg,
		slog.String("state", string(failedIn)),
		slog.String("reason", reason),
		slog.Int("compensations", run.stack.len()),
	)

	compCtx := context.WithoutCancel(ctx)
	run.stack.unwind(compCtx, reason, func(c compensation, err error) {
		attrs := append([]slog.Attr{slog.String("resource", c.resource)}, c.attrs...)
		if err != nil {
			attrs = append(attrs, slog.Bool("manual_intervention", true), slog.Any("error", err))
			run.logger.LogAttrs(compCtx, slog.LevelError, "compensation failed", attrs...)
			s.metrics.RecordCompensation(compCtx, c.resource, "error")
			return
		}
		run.logger.LogAttrs(compCtx, slog.LevelInfo, "compensation applied", attrs...)
		s.metrics.RecordCompensation(compCtx, c.resource, "success")
	})

	run.state = domain.SagaStateFailed
	return &domain.SagaFailure{State: failedIn, Err: cause}
}

func (s *OrderSaga) validate(ctx context.Context, run *sagaRun) error {
	in := run.input
	if in.UserID == uuid.Nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "user id is required")
	}
	if len(in.Items) == 0 {
		return domain.ErrEmptyOrder
	}
	for _, item := range in.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return domain.ErrInvalidItem
		}
	}
	if in.UserCouponID != nil && *in.UserCouponID == uuid.Nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "user coupon id must not be empty")
	}

	exists, err := s.users.ExistsByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return userDomain.ErrUserNotFound
	}

	seen := make(map[uuid.UUID]bool, len(in.Items))
	for _, item := range in.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		if _, err := s.products.GetByID(ctx, item.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// reserveStock reserves lines in request order and stops at the first failure.
func (s *OrderSaga) reserveStock(ctx context.Context, run *sagaRun) error {
	for _, item := range run.input.Items {
		id := event.NewCorrelationID()
		completion, err := correlation.Await[event.StockReservationCompleted](ctx, s.requester,
			event.StockReservationRequested{
				Envelope:  event.Envelope{CorrelationID: id},
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			}, id, s.config.StepTimeout)
		if err != nil {
			return err
		}
		if !completion.Succeeded() {
			return completion.Err()
		}

		productID, quantity := item.ProductID, item.Quantity
		run.stack.push(compensation{
			resource: "stock",
			attrs:    []slog.Attr{slog.String("product_id", productID.String()), slog.Int("quantity", quantity)},
			undo: func(ctx context.Context, reason string) error {
				id := event.NewCorrelationID()
				return awaitRestore[event.StockRestoreCompleted](ctx, s, event.StockRestoreRequested{
					Envelope:  event.Envelope{CorrelationID: id},
					ProductID: productID,
					Quantity:  quantity,
					Reason:    reason,
				})
			},
		})

		line := domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: completion.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   completion.UnitPrice,
		}
		run.items = append(run.items, line)
		run.total += line.Subtotal()
	}
	run.final = run.total
	return nil
}

func (s *OrderSaga) applyCoupon(ctx context.Context, run *sagaRun) error {
	if run.input.UserCouponID == nil {
		return nil
	}
	userCouponID := *run.input.UserCouponID
	userID := run.input.UserID

	id := event.NewCorrelationID()
	completion, err := correlation.Await[event.CouponUsageCompleted](ctx, s.requester,
		event.CouponUsageRequested{
			Envelope:     event.Envelope{CorrelationID: id},
			UserID:       userID,
			UserCouponID: userCouponID,
			OrderAmount:  run.total,
		}, id, s.config.StepTimeout)
	if err != nil {
		return err
	}
	if !completion.Succeeded() {
		return completion.Err()
	}

	run.stack.push(compensation{
		resource: "coupon",
		attrs:    []slog.Attr{slog.String("user_coupon_id", userCouponID.String())},
		undo: func(ctx context.Context, reason string) error {
			id := event.NewCorrelationID()
			return awaitRestore[event.CouponRestoreCompleted](ctx, s, event.CouponRestoreRequested{
				Envelope:     event.Envelope{CorrelationID: id},
				UserID:       userID,
				UserCouponID: userCouponID,
				Reason:       reason,
			})
		},
	})

	run.discount = completion.DiscountAmount
	run.final = completion.DiscountedAmount
	return nil
}

// deductBalance charges the discounted total. A fully discounted order has
// nothing to deduct.
func (s *OrderSaga) deductBalance(ctx context.Context, run *sagaRun) error {
	if run.final == 0 {
		return nil
	}
	userID, amount := run.input.UserID, run.final

	id := event.NewCorrelationID()
	completion, err := correlation.Await[event.BalanceDeductionCompleted](ctx, s.requester,
		event.BalanceDeductionRequested{
			Envelope: event.Envelope{CorrelationID: id},
			UserID:   userID,
			Amount:   amount,
		}, id, s.config.StepTimeout)
	if err != nil {
		return err
	}
	if !completion.Succeeded() {
		return completion.Err()
	}

	run.stack.push(compensation{
		resource: "balance",
		attrs:    []slog.Attr{slog.Int64("amount", amount)},
		undo: func(ctx context.Context, reason string) error {
			id := event.NewCorrelationID()
			return awaitRestore[event.BalanceRestoreCompleted](ctx, s, event.BalanceRestoreRequested{
				Envelope: event.Envelope{CorrelationID: id},
				UserID:   userID,
				Amount:   amount,
				Reason:   reason,
			})
		},
	})
	return nil
}

// persist writes the order and its order.completed notification in one
// transaction, so the notification is relayed only for stored orders.
func (s *OrderSaga) persist(ctx context.Context, run *sagaRun) error {
	now := s.now()
	order := &domain.Order{
		ID:             run.orderID,
		UserID:         run.input.UserID,
		Items:          run.items,
		TotalAmount:    run.total,
		DiscountAmount: run.discount,
		FinalAmount:    run.final,
		UserCouponID:   run.input.UserCouponID,
		Status:         domain.OrderStatusCompleted,
		CreatedAt:      now,
	}

	notification, err := outboxDomain.NewOutboxEvent(orderCompletedEvent(order))
	if err != nil {
		return err
	}

	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		return s.outbox.Create(ctx, notification)
	})
	if err != nil {
		return fmt.Errorf("failed to persist order: %w", err)
	}

	run.order = order
	return nil
}

func orderCompletedEvent(order *domain.Order) event.OrderCompleted {
	items := make([]event.OrderCompletedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, event.OrderCompletedItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return event.OrderCompleted{
		OrderID:        order.ID,
		UserID:         order.UserID,
		Items:          items,
		TotalAmount:    order.TotalAmount,
		DiscountAmount: order.DiscountAmount,
		FinalAmount:    order.FinalAmount,
		UserCouponID:   order.UserCouponID,
		CompletedAt:    order.CreatedAt,
	}
}

// awaitRestore sends a restore request and waits RestoreTimeout for its completion.
func awaitRestore[T event.Completion](ctx context.Context, s *OrderSaga, req event.Request) error {
	completion, err := correlation.Await[T](ctx, s.requester, req, req.Correlation(), s.config.RestoreTimeout)
	if err != nil {
		return err
	}
	if !completion.Succeeded() {
		return completion.Err()
	}
	return nil
}
