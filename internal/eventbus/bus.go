// Package eventbus provides the transports that carry saga events between the
// order saga and the resource handlers.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/allisson/ordersaga/internal/event"
)

// ErrBusClosed is returned when publishing on a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// Handler processes one event. Returned errors are logged by the bus.
type Handler func(ctx context.Context, ev event.Event) error

// Publisher publishes events. Publish returns once the bus has accepted the event;
// delivery happens asynchronously.
type Publisher interface {
	Publish(ctx context.Context, ev event.Event) error
}

// Subscriber registers handlers by event type. Subscriptions must happen before Start.
type Subscriber interface {
	Subscribe(eventType string, h Handler)
}

// Bus is a Publisher and Subscriber with a lifecycle.
type Bus interface {
	Publisher
	Subscriber
	Start(ctx context.Context) error
	Close() error
}

// registry holds handlers by event type.
type registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string][]Handler)}
}

func (r *registry) add(eventType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], h)
}

func (r *registry) get(eventType string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[eventType]
}

func (r *registry) types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// dispatch runs every handler subscribed to ev's type. A panicking handler is
// logged and does not stop the others.
func (r *registry) dispatch(ctx context.Context, logger *slog.Logger, ev event.Event) {
	for _, h := range r.get(ev.EventType()) {
		if err := safeCall(ctx, h, ev); err != nil {
			logger.Error("event handler failed",
				slog.String("event_type", ev.EventType()),
				slog.String("key", ev.Key()),
				slog.Any("error", err),
			)
		}
	}
}

func safeCall(ctx context.Context, h Handler, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}
