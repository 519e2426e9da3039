package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/ordersaga/internal/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryBus_DeliversToSubscribers(t *testing.T) {
	bus := NewMemoryBus(4, 16, discardLogger())
	defer func() { require.NoError(t, bus.Close()) }()

	received := make(chan event.Event, 2)
	handler := func(ctx context.Context, ev event.Event) error {
		received <- ev
		return nil
	}
	bus.Subscribe(event.TypeStockReservationRequested, handler)
	bus.Subscribe(event.TypeStockReservationRequested, handler)
	require.NoError(t, bus.Start(context.Background()))

	req := event.StockReservationRequested{
		Envelope:  event.Envelope{CorrelationID: "corr"},
		ProductID: uuid.Must(uuid.NewV7()),
		Quantity:  1,
	}
	require.NoError(t, bus.Publish(context.Background(), req))

	for range 2 {
		select {
		case ev := <-received:
			assert.Equal(t, req, ev)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestMemoryBus_PreservesPerKeyOrder(t *testing.T) {
	bus := NewMemoryBus(8, 0, discardLogger())
	defer func() { require.NoError(t, bus.Close()) }()

	productID := uuid.Must(uuid.NewV7())
	const total = 200

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	bus.Subscribe(event.TypeStockRestoreRequested, func(ctx context.Context, ev event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.(event.StockRestoreRequested).Quantity)
		if len(got) == total {
			close(done)
		}
		return nil
	})

	for i := range total {
		require.NoError(t, bus.Publish(context.Background(), event.StockRestoreRequested{
			ProductID: productID,
			Quantity:  i,
		}))
	}
	require.NoError(t, bus.Start(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, q := range got {
		assert.Equal(t, i, q)
	}
}

func TestMemoryBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewMemoryBus(1, 4, discardLogger())
	defer func() { require.NoError(t, bus.Close()) }()

	delivered := make(chan struct{}, 1)
	bus.Subscribe(event.TypeOrderCompleted, func(ctx context.Context, ev event.Event) error {
		panic("boom")
	})
	bus.Subscribe(event.TypeOrderCompleted, func(ctx context.Context, ev event.Event) error {
		delivered <- struct{}{}
		return nil
	})
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), event.OrderCompleted{}))

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("second handler did not run")
	}
}

func TestMemoryBus_HandlersCanPublish(t *testing.T) {
	bus := NewMemoryBus(2, 0, discardLogger())
	defer func() { require.NoError(t, bus.Close()) }()

	replies := make(chan event.Completion, 1)
	bus.Subscribe(event.TypeBalanceDeductionRequested, func(ctx context.Context, ev event.Event) error {
		req := ev.(event.BalanceDeductionRequested)
		return bus.Publish(ctx, event.BalanceDeductionCompleted{
			Outcome: event.Succeed(req.Correlation()),
			UserID:  req.UserID,
			Amount:  req.Amount,
		})
	})
	bus.Subscribe(event.TypeBalanceDeductionCompleted, func(ctx context.Context, ev event.Event) error {
		replies <- ev.(event.Completion)
		return nil
	})
	require.NoError(t, bus.Start(context.Background()))

	require.NoError(t, bus.Publish(context.Background(), event.BalanceDeductionRequested{
		Envelope: event.Envelope{CorrelationID: "c-1"},
		UserID:   uuid.Must(uuid.NewV7()),
		Amount:   100,
	}))

	select {
	case c := <-replies:
		assert.Equal(t, "c-1", c.Correlation())
		assert.True(t, c.Succeeded())
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}
}

func TestMemoryBus_Lifecycle(t *testing.T) {
	t.Run("Error_PublishAfterClose", func(t *testing.T) {
		bus := NewMemoryBus(1, 1, discardLogger())
		require.NoError(t, bus.Start(context.Background()))
		require.NoError(t, bus.Close())
		require.NoError(t, bus.Close())

		err := bus.Publish(context.Background(), event.OrderCompleted{})
		assert.ErrorIs(t, err, ErrBusClosed)
		assert.ErrorIs(t, bus.Start(context.Background()), ErrBusClosed)
	})

	t.Run("Success_OutlivesStartContext", func(t *testing.T) {
		bus := NewMemoryBus(2, 1, discardLogger())
		replies := make(chan error, 1)
		bus.Subscribe(event.TypeBalanceDeductionRequested, func(ctx context.Context, ev event.Event) error {
			replies <- ctx.Err()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, bus.Start(ctx))
		require.NoError(t, bus.Start(ctx))
		cancel()

		require.NoError(t, bus.Publish(context.Background(), event.BalanceDeductionRequested{UserID: uuid.Must(uuid.NewV7())}))
		select {
		case err := <-replies:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("worker stopped with the start context")
		}
		require.NoError(t, bus.Close())
	})

	t.Run("Success_CloseDrainsQueuedEvents", func(t *testing.T) {
		bus := NewMemoryBus(1, 0, discardLogger())
		release := make(chan struct{})
		var mu sync.Mutex
		var handled []int
		bus.Subscribe(event.TypeStockRestoreRequested, func(ctx context.Context, ev event.Event) error {
			<-release
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, ev.(event.StockRestoreRequested).Quantity)
			return nil
		})
		require.NoError(t, bus.Start(context.Background()))

		productID := uuid.Must(uuid.NewV7())
		for i := range 5 {
			require.NoError(t, bus.Publish(context.Background(), event.StockRestoreRequested{ProductID: productID, Quantity: i}))
		}

		closed := make(chan error, 1)
		go func() { closed <- bus.Close() }()
		assert.Eventually(t, func() bool {
			return errors.Is(bus.Publish(context.Background(), event.OrderCompleted{}), ErrBusClosed)
		}, time.Second, 5*time.Millisecond)
		close(release)

		select {
		case err := <-closed:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("close did not return")
		}
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []int{0, 1, 2, 3, 4}, handled)
	})

	t.Run("Success_ZeroWorkersDefaultsToOne", func(t *testing.T) {
		bus := NewMemoryBus(0, 0, discardLogger())
		assert.Len(t, bus.shards, 1)
	})
}
