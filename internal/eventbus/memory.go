package eventbus

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/allisson/ordersaga/internal/event"
)

type delivery struct {
	span trace.SpanContext
	ev   event.Event
}

// shard is an unbounded FIFO drained by a single worker. Handlers publish from
// inside workers, so a bounded queue could deadlock two shards on each other.
type shard struct {
	mu     sync.Mutex
	queue  []delivery
	notify chan struct{}
}

func (s *shard) push(d delivery) {
	s.mu.Lock()
	s.queue = append(s.queue, d)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *shard) take() []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.queue
	s.queue = nil
	return batch
}

// MemoryBus is an in-process bus. Events are routed to a shard by the hash of
// their key, so events sharing a key are handled in publish order while
// different keys are handled concurrently.
type MemoryBus struct {
	logger   *slog.Logger
	registry *registry
	shards   []*shard

	mu      sync.Mutex
	closed  bool
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewMemoryBus creates a MemoryBus with the given number of shards. capacity is
// the initial queue capacity of each shard.
func NewMemoryBus(workers, capacity int, logger *slog.Logger) *MemoryBus {
	if workers < 1 {
		workers = 1
	}
	shards := make([]*shard, workers)
	for i := range shards {
		shards[i] = &shard{
			queue:  make([]delivery, 0, max(capacity, 0)),
			notify: make(chan struct{}, 1),
		}
	}
	return &MemoryBus{
		logger:   logger,
		registry: newRegistry(),
		shards:   shards,
		done:     make(chan struct{}),
	}
}

// Subscribe registers h for eventType.
func (b *MemoryBus) Subscribe(eventType string, h Handler) {
	b.registry.add(eventType, h)
}

// Publish enqueues ev on its shard. Only the span context of ctx is carried to
// handlers; cancellation of ctx does not affect delivery.
func (b *MemoryBus) Publish(ctx context.Context, ev event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}

	b.shards[b.shardFor(ev.Key())].push(delivery{
		span: trace.SpanContextFromContext(ctx),
		ev:   ev,
	})
	return nil
}

// Start launches one worker per shard. Handlers see the values of ctx but not
// its cancellation: a reservation that has begun must still publish its
// completion. Workers stop only on Close.
func (b *MemoryBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if b.started {
		return nil
	}
	b.started = true

	ctx = context.WithoutCancel(ctx)
	for _, s := range b.shards {
		b.wg.Add(1)
		go b.work(ctx, s)
	}
	return nil
}

// Close rejects further publishes, lets every worker drain the events already
// queued on its shard and waits for them to return.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (b *MemoryBus) work(ctx context.Context, s *shard) {
	defer b.wg.Done()

	for {
		if b.handle(ctx, s.take()) {
			continue
		}

		select {
		case <-s.notify:
		case <-b.done:
			// Publish holds b.mu while pushing, so nothing lands after done is closed.
			for b.handle(ctx, s.take()) {
			}
			return
		}
	}
}

// handle dispatches batch and reports whether it was non-empty.
func (b *MemoryBus) handle(ctx context.Context, batch []delivery) bool {
	for _, d := range batch {
		handlerCtx := ctx
		if d.span.IsValid() {
			handlerCtx = trace.ContextWithRemoteSpanContext(ctx, d.span)
		}
		b.registry.dispatch(handlerCtx, b.logger, d.ev)
	}
	return len(batch) > 0
}

func (b *MemoryBus) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(b.shards)))
}
