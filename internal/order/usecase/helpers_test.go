package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	balanceRepository "github.com/allisson/ordersaga/internal/balance/repository"
	balanceUseCase "github.com/allisson/ordersaga/internal/balance/usecase"
	"github.com/allisson/ordersaga/internal/correlation"
	couponDomain "github.com/allisson/ordersaga/internal/coupon/domain"
	couponRepository "github.com/allisson/ordersaga/internal/coupon/repository"
	couponUseCase "github.com/allisson/ordersaga/internal/coupon/usecase"
	"github.com/allisson/ordersaga/internal/database"
	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/eventbus"
	inventoryDomain "github.com/allisson/ordersaga/internal/inventory/domain"
	inventoryRepository "github.com/allisson/ordersaga/internal/inventory/repository"
	inventoryUseCase "github.com/allisson/ordersaga/internal/inventory/usecase"
	"github.com/allisson/ordersaga/internal/lock"
	orderRepository "github.com/allisson/ordersaga/internal/order/repository"
	outboxRepository "github.com/allisson/ordersaga/internal/outbox/repository"
	userDomain "github.com/allisson/ordersaga/internal/user/domain"
	userRepository "github.com/allisson/ordersaga/internal/user/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var completionTypes = []string{
	event.TypeStockReservationCompleted,
	event.TypeStockRestoreCompleted,
	event.TypeCouponUsageCompleted,
	event.TypeCouponRestoreCompleted,
	event.TypeBalanceDeductionCompleted,
	event.TypeBalanceRestoreCompleted,
}

// harness wires the saga to the real resource handlers over an in-memory bus.
type harness struct {
	broker      *correlation.Broker
	products    *inventoryRepository.MemoryProductRepository
	coupons     *couponRepository.MemoryCouponRepository
	userCoupons *couponRepository.MemoryUserCouponRepository
	balances    *balanceRepository.MemoryBalanceRepository
	users       *userRepository.MemoryUserRepository
	orders      *orderRepository.MemoryOrderRepository
	outbox      *outboxRepository.MemoryOutboxEventRepository
	metrics     *recordingMetrics
	saga        *OrderSaga
	// stopStart cancels the context the bus was started with.
	stopStart context.CancelFunc
}

type harnessOptions struct {
	config       Config
	balanceDelay time.Duration
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	logger := discardLogger()

	if opts.config.StepTimeout == 0 {
		opts.config.StepTimeout = 2 * time.Second
	}
	if opts.config.RestoreTimeout == 0 {
		opts.config.RestoreTimeout = 2 * time.Second
	}

	h := &harness{
		products:    inventoryRepository.NewMemoryProductRepository(),
		coupons:     couponRepository.NewMemoryCouponRepository(),
		userCoupons: couponRepository.NewMemoryUserCouponRepository(),
		balances:    balanceRepository.NewMemoryBalanceRepository(),
		users:       userRepository.NewMemoryUserRepository(),
		orders:      orderRepository.NewMemoryOrderRepository(),
		outbox:      outboxRepository.NewMemoryOutboxEventRepository(),
		metrics:     &recordingMetrics{},
	}

	bus := eventbus.NewMemoryBus(4, 16, logger)
	h.broker = correlation.NewBroker(bus, logger)
	h.broker.SetLateHandler(NewReconciler(bus, h.metrics, logger))
	h.broker.Listen(bus, completionTypes...)

	inventoryUseCase.NewStockHandler(h.products, bus, logger).Register(bus)
	couponUseCase.NewUsageHandler(h.coupons, h.userCoupons, bus, logger).Register(bus)

	deductions := balanceUseCase.NewDeductionHandler(
		h.balances,
		lock.NewMemoryManager(logger),
		lock.Options{WaitTimeout: time.Second, LeaseTimeout: 5 * time.Second},
		bus,
		logger,
	)
	if opts.balanceDelay > 0 {
		bus.Subscribe(event.TypeBalanceDeductionRequested, func(ctx context.Context, ev event.Event) error {
			time.Sleep(opts.balanceDelay)
			return deductions.HandleDeduction(ctx, ev)
		})
		bus.Subscribe(event.TypeBalanceRestoreRequested, deductions.HandleRestore)
	} else {
		deductions.Register(bus)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.stopStart = cancel
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = bus.Close()
	})

	h.saga = NewOrderSaga(
		opts.config,
		h.broker,
		database.NewMemoryTxManager(),
		h.orders,
		h.outbox,
		h.users,
		h.products,
		h.metrics,
		logger,
	)
	return h
}

func (h *harness) user(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, h.users.Create(context.Background(), &userDomain.User{
		ID:    id,
		Name:  "Customer",
		Email: id.String() + "@example.com",
	}))
	if balance > 0 {
		_, err := h.balances.Credit(context.Background(), id, balance)
		require.NoError(t, err)
	}
	return id
}

func (h *harness) product(t *testing.T, name string, price int64, stock int) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	p := &inventoryDomain.Product{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, h.products.Create(context.Background(), p))
	return p.ID
}

func (h *harness) fixedCoupon(t *testing.T, userID uuid.UUID, discount int64) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	c := &couponDomain.Coupon{
		ID:               uuid.Must(uuid.NewV7()),
		Name:             "Welcome",
		DiscountType:     couponDomain.DiscountTypeFixed,
		DiscountValue:    discount,
		MaxIssuanceCount: 10,
		ValidFrom:        now.Add(-time.Hour),
		ValidUntil:       now.Add(24 * time.Hour),
		Active:           true,
	}
	require.NoError(t, h.coupons.Create(context.Background(), c))

	uc := &couponDomain.UserCoupon{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		CouponID:  c.ID,
		Status:    couponDomain.UserCouponStatusAvailable,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, h.userCoupons.Create(context.Background(), uc))
	return uc.ID
}

func (h *harness) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	p, err := h.products.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (h *harness) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	b, err := h.balances.Get(context.Background(), userID)
	require.NoError(t, err)
	return b.Amount
}

func (h *harness) couponStatus(t *testing.T, userCouponID uuid.UUID) couponDomain.UserCouponStatus {
	t.Helper()
	uc, err := h.userCoupons.GetByID(context.Background(), userCouponID)
	require.NoError(t, err)
	return uc.Status
}

type compensationRecord struct {
	resource string
	status   string
}

// recordingMetrics keeps compensation and late completion records.
type recordingMetrics struct {
	mu            sync.Mutex
	compensations []compensationRecord
	late          []string
}

func (m *recordingMetrics) RecordOperation(context.Context, string, string, string) {}

func (m *recordingMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (m *recordingMetrics) RecordCompensation(_ context.Context, resource, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compensations = append(m.compensations, compensationRecord{resource: resource, status: status})
}

func (m *recordingMetrics) RecordLateCompletion(_ context.Context, eventType, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.late = append(m.late, eventType+":"+action)
}

func (m *recordingMetrics) compensationRecords() []compensationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]compensationRecord(nil), m.compensations...)
}

func (m *recordingMetrics) lateRecords() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.late...)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) published() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Event(nil), p.events...)
}
