// Package correlation turns the fire-and-forget event bus into a synchronous
// request/response call: a request is registered under its correlation id before
// it is published, and the caller blocks until the matching completion arrives
// or its deadline passes.
package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/eventbus"
)

var (
	// ErrTimeout is returned when no completion arrived before the deadline.
	// The outcome of the remote mutation is unknown.
	ErrTimeout = apperrors.Wrap(apperrors.ErrTimeout, "completion not received in time")

	// ErrDuplicate is returned when a correlation id is already waiting.
	ErrDuplicate = apperrors.Wrap(apperrors.ErrConflict, "correlation id already pending")
)

// Outcome describes what Deliver did with a completion.
type Outcome int

const (
	Delivered Outcome = iota
	// Duplicate means the waiter already holds a result; the copy was dropped.
	Duplicate
	// Mismatched means a waiter exists but expects another event type.
	Mismatched
	// Late means the waiter had timed out; the completion went to the LateHandler.
	Late
	// Unroutable means no waiter and no record of one.
	Unroutable
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Duplicate:
		return "duplicate"
	case Mismatched:
		return "mismatched"
	case Late:
		return "late"
	default:
		return "unroutable"
	}
}

// LateHandler is given completions that arrive after their waiter gave up.
type LateHandler interface {
	HandleLate(ctx context.Context, c event.Completion)
}

// Requester is the synchronous call used by the order saga.
type Requester interface {
	PublishAndWait(
		ctx context.Context,
		req event.Event,
		correlationID, expectedType string,
		timeout time.Duration,
	) (event.Completion, error)
}

type entry struct {
	expectedType string
	deadline     time.Time
	result       chan event.Completion
}

// Broker owns the table of pending requests.
type Broker struct {
	publisher   eventbus.Publisher
	logger      *slog.Logger
	lateHandler LateHandler
	lateWindow  time.Duration

	mu         sync.Mutex
	pending    map[string]*entry
	tombstones map[string]time.Time
}

// Option configures a Broker.
type Option func(*Broker)

// WithLateHandler sets the handler for completions that arrive after a timeout.
func WithLateHandler(h LateHandler) Option {
	return func(b *Broker) { b.lateHandler = h }
}

// WithLateWindow sets how long timed-out correlation ids are remembered.
func WithLateWindow(d time.Duration) Option {
	return func(b *Broker) { b.lateWindow = d }
}

// NewBroker creates a Broker that publishes requests on publisher.
func NewBroker(publisher eventbus.Publisher, logger *slog.Logger, opts ...Option) *Broker {
	b := &Broker{
		publisher:  publisher,
		logger:     logger,
		lateWindow: 10 * time.Minute,
		pending:    make(map[string]*entry),
		tombstones: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetLateHandler replaces the late completion handler. It exists for wiring
// cycles where the handler itself needs the broker's publisher.
func (b *Broker) SetLateHandler(h LateHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lateHandler = h
}

// PublishAndWait registers correlationID, publishes req and waits for a
// completion of expectedType. The pending entry is always removed before
// returning.
func (b *Broker) PublishAndWait(
	ctx context.Context,
	req event.Event,
	correlationID, expectedType string,
	timeout time.Duration,
) (event.Completion, error) {
	e, err := b.register(correlationID, expectedType, timeout)
	if err != nil {
		return nil, err
	}

	if err := b.publisher.Publish(ctx, req); err != nil {
		b.remove(correlationID, e, false)
		return nil, fmt.Errorf("failed to publish %s: %w", req.EventType(), err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c := <-e.result:
		b.remove(correlationID, e, false)
		return c, nil
	case <-timer.C:
		if c, ok := b.remove(correlationID, e, true); ok {
			return c, nil
		}
		b.logger.Warn("completion timed out, outcome unknown",
			slog.String("correlation_id", correlationID),
			slog.String("request_type", req.EventType()),
			slog.Duration("timeout", timeout),
		)
		return nil, ErrTimeout
	case <-ctx.Done():
		if c, ok := b.remove(correlationID, e, true); ok {
			return c, nil
		}
		return nil, ctx.Err()
	}
}

// Await is PublishAndWait with the completion type given as a type parameter.
func Await[T event.Completion](
	ctx context.Context,
	r Requester,
	req event.Event,
	correlationID string,
	timeout time.Duration,
) (T, error) {
	var zero T
	c, err := r.PublishAndWait(ctx, req, correlationID, zero.EventType(), timeout)
	if err != nil {
		return zero, err
	}
	typed, ok := c.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected completion %T for %s", c, zero.EventType())
	}
	return typed, nil
}

// Deliver routes a completion to its waiter. It never blocks.
func (b *Broker) Deliver(ctx context.Context, c event.Completion) Outcome {
	id := c.Correlation()

	b.mu.Lock()
	if e, ok := b.pending[id]; ok {
		defer b.mu.Unlock()
		if e.expectedType != c.EventType() {
			b.logger.Warn("completion type does not match waiter",
				slog.String("correlation_id", id),
				slog.String("expected", e.expectedType),
				slog.String("got", c.EventType()),
			)
			return Mismatched
		}
		select {
		case e.result <- c:
			return Delivered
		default:
			return Duplicate
		}
	}

	expires, late := b.tombstones[id]
	if late {
		// Forget the id so a redelivered copy is not reconciled twice.
		delete(b.tombstones, id)
		late = time.Now().Before(expires)
	}
	handler := b.lateHandler
	b.mu.Unlock()

	if !late {
		b.logger.Debug("dropping unroutable completion",
			slog.String("correlation_id", id),
			slog.String("event_type", c.EventType()),
		)
		return Unroutable
	}

	b.logger.Warn("late completion received",
		slog.String("correlation_id", id),
		slog.String("event_type", c.EventType()),
		slog.Bool("success", c.Succeeded()),
	)
	if handler != nil {
		handler.HandleLate(ctx, c)
	}
	return Late
}

// Listen subscribes Deliver to the given completion types.
func (b *Broker) Listen(sub eventbus.Subscriber, completionTypes ...string) {
	for _, t := range completionTypes {
		sub.Subscribe(t, func(ctx context.Context, ev event.Event) error {
			c, ok := ev.(event.Completion)
			if !ok {
				return fmt.Errorf("event %s is not a completion", ev.EventType())
			}
			b.Deliver(ctx, c)
			return nil
		})
	}
}

// Pending returns the number of live waiters.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Run purges expired tombstones until ctx is done.
func (b *Broker) Run(ctx context.Context) {
	interval := max(b.lateWindow/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.purge(time.Now())
		}
	}
}

func (b *Broker) purge(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	purged := 0
	for id, expires := range b.tombstones {
		if !now.Before(expires) {
			delete(b.tombstones, id)
			purged++
		}
	}
	return purged
}

func (b *Broker) register(correlationID, expectedType string, timeout time.Duration) (*entry, error) {
	if correlationID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "correlation id is required")
	}
	if timeout <= 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "timeout must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pending[correlationID]; ok {
		return nil, ErrDuplicate
	}
	delete(b.tombstones, correlationID)

	e := &entry{
		expectedType: expectedType,
		deadline:     time.Now().Add(timeout),
		result:       make(chan event.Completion, 1),
	}
	b.pending[correlationID] = e
	return e, nil
}

// remove deletes the entry if it is still e. When abandoned is set the id is
// remembered as a tombstone, unless a completion slipped in just before removal,
// in which case that completion is returned instead.
func (b *Broker) remove(correlationID string, e *entry, abandoned bool) (event.Completion, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.pending[correlationID]; ok && cur == e {
		delete(b.pending, correlationID)
	}

	select {
	case c := <-e.result:
		return c, true
	default:
	}

	if abandoned && b.lateWindow > 0 {
		b.tombstones[correlationID] = time.Now().Add(b.lateWindow)
	}
	return nil, false
}
