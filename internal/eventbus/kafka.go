package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/ordersaga/internal/event"
)

const (
	eventTypeHeader = "event_type"
	commitTimeout   = 5 * time.Second
)

// KafkaConfig configures a KafkaBus.
type KafkaConfig struct {
	Brokers           []string
	RequestTopic      string
	CompletionTopic   string
	NotificationTopic string
	// GroupID is shared by every instance consuming requests.
	GroupID string
	// InstanceID makes the completion consumer group unique per process, so the
	// instance holding a pending correlation sees every completion. A stable id
	// lets a restarted process resume its own group.
	InstanceID string
}

// KafkaBus carries events over Kafka. Requests, completions and notifications
// use separate topics; the message key is the event key.
type KafkaBus struct {
	cfg      KafkaConfig
	logger   *slog.Logger
	registry *registry
	writer   *kafka.Writer

	mu      sync.Mutex
	readers []*kafka.Reader
	cancel  context.CancelFunc
	group   *errgroup.Group
	closing bool
	closed  bool
}

// NewKafkaBus creates a KafkaBus. Readers are created by Start.
func NewKafkaBus(cfg KafkaConfig, logger *slog.Logger) *KafkaBus {
	return &KafkaBus{
		cfg:      cfg,
		logger:   logger,
		registry: newRegistry(),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 5 * time.Millisecond,
		},
	}
}

// Subscribe registers h for eventType.
func (b *KafkaBus) Subscribe(eventType string, h Handler) {
	b.registry.add(eventType, h)
}

// Publish writes ev to the topic of its kind.
func (b *KafkaBus) Publish(ctx context.Context, ev event.Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	msg, err := b.toMessage(ctx, ev)
	if err != nil {
		return err
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s to kafka: %w", ev.EventType(), err)
	}
	return nil
}

// Start launches one consumer per topic that has subscribed handlers. The
// consumers ignore cancellation of ctx and stop on Close.
func (b *KafkaBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closing {
		return ErrBusClosed
	}
	if b.group != nil {
		return nil
	}

	ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.group, ctx = errgroup.WithContext(ctx)

	for topic, groupID := range b.subscribedTopics() {
		reader := kafka.NewReader(b.readerConfig(topic, groupID))
		b.readers = append(b.readers, reader)
		b.group.Go(func() error { return b.consume(ctx, reader) })
	}
	return nil
}

// Close stops the consumers, waits for the messages they already fetched to be
// handled, then flushes the writer. Handlers may still publish until then.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		return nil
	}
	b.closing = true
	cancel, group, readers := b.cancel, b.group, b.readers
	b.mu.Unlock()

	var errs []error
	if cancel != nil {
		cancel()
	}
	if group != nil {
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}

	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	for _, r := range readers {
		errs = append(errs, r.Close())
	}
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}

func (b *KafkaBus) consume(ctx context.Context, reader *kafka.Reader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch from %s: %w", reader.Config().Topic, err)
		}

		// A fetched message is handled to the end even when Close runs meanwhile,
		// so a mutation is never left without its completion.
		msgCtx, ev, err := b.fromMessage(context.WithoutCancel(ctx), msg)
		if err != nil {
			b.logger.Warn("dropping undecodable message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.Any("error", err),
			)
		} else {
			b.registry.dispatch(msgCtx, b.logger, ev)
		}

		if err := b.commit(ctx, reader, msg); err != nil {
			b.logger.Error("failed to commit kafka message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.Any("error", err),
			)
		}
	}
}

// commit acknowledges a handled message. It outlives Close like the handler
// did, so the message is not redelivered after a clean shutdown.
func (b *KafkaBus) commit(ctx context.Context, reader *kafka.Reader, msg kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	return reader.CommitMessages(ctx, msg)
}

// readerConfig builds the consumer for topic. Completions only matter to waiters
// registered by this process, so a new completion group starts at the tail
// instead of replaying the retained topic.
func (b *KafkaBus) readerConfig(topic, groupID string) kafka.ReaderConfig {
	startOffset := kafka.FirstOffset
	if topic == b.cfg.CompletionTopic {
		startOffset = kafka.LastOffset
	}
	return kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     100 * time.Millisecond,
		StartOffset: startOffset,
	}
}

// subscribedTopics maps each topic with at least one handler to its consumer group.
func (b *KafkaBus) subscribedTopics() map[string]string {
	topics := make(map[string]string)
	for _, eventType := range b.registry.types() {
		switch kindOfType(eventType) {
		case event.KindCompletion:
			topics[b.cfg.CompletionTopic] = b.cfg.GroupID + "-" + b.cfg.InstanceID
		case event.KindNotification:
			topics[b.cfg.NotificationTopic] = b.cfg.GroupID + "-notifications"
		default:
			topics[b.cfg.RequestTopic] = b.cfg.GroupID
		}
	}
	return topics
}

func (b *KafkaBus) topicFor(ev event.Event) string {
	switch event.KindOf(ev) {
	case event.KindCompletion:
		return b.cfg.CompletionTopic
	case event.KindNotification:
		return b.cfg.NotificationTopic
	default:
		return b.cfg.RequestTopic
	}
}

func (b *KafkaBus) toMessage(ctx context.Context, ev event.Event) (kafka.Message, error) {
	payload, err := event.Encode(ev)
	if err != nil {
		return kafka.Message{}, err
	}

	headers := []kafka.Header{{Key: eventTypeHeader, Value: []byte(ev.EventType())}}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return kafka.Message{
		Topic:   b.topicFor(ev),
		Key:     []byte(ev.Key()),
		Value:   payload,
		Headers: headers,
	}, nil
}

func (b *KafkaBus) fromMessage(ctx context.Context, msg kafka.Message) (context.Context, event.Event, error) {
	carrier := propagation.MapCarrier{}
	var eventType string
	for _, h := range msg.Headers {
		if h.Key == eventTypeHeader {
			eventType = string(h.Value)
			continue
		}
		carrier[h.Key] = string(h.Value)
	}
	if eventType == "" {
		return ctx, nil, errors.New("missing event_type header")
	}

	ev, err := event.Decode(eventType, msg.Value)
	if err != nil {
		return ctx, nil, err
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier), ev, nil
}

// kindOfType classifies an event type by decoding an empty payload.
func kindOfType(eventType string) event.Kind {
	ev, err := event.Decode(eventType, []byte(`{}`))
	if err != nil {
		return event.KindRequest
	}
	return event.KindOf(ev)
}
