package eventbus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/allisson/ordersaga/internal/event"
)

func newTestKafkaBus() *KafkaBus {
	return NewKafkaBus(KafkaConfig{
		Brokers:           []string{"localhost:9092"},
		RequestTopic:      "requests",
		CompletionTopic:   "completions",
		NotificationTopic: "notifications",
		GroupID:           "handlers",
		InstanceID:        "node-1",
	}, discardLogger())
}

func TestKafkaBus_MessageRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	bus := newTestKafkaBus()
	defer func() { _ = bus.writer.Close() }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	req := event.CouponUsageRequested{
		Envelope:     event.Envelope{CorrelationID: "corr-7"},
		UserID:       uuid.Must(uuid.NewV7()),
		UserCouponID: uuid.Must(uuid.NewV7()),
		OrderAmount:  20000,
	}

	msg, err := bus.toMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "requests", msg.Topic)
	assert.Equal(t, req.UserCouponID.String(), string(msg.Key))

	gotCtx, got, err := bus.fromMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, req, got)
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(gotCtx).TraceID())
}

func TestKafkaBus_FromMessageErrors(t *testing.T) {
	bus := newTestKafkaBus()
	defer func() { _ = bus.writer.Close() }()

	_, _, err := bus.fromMessage(context.Background(), kafka.Message{Value: []byte(`{}`)})
	assert.EqualError(t, err, "missing event_type header")

	_, _, err = bus.fromMessage(context.Background(), kafka.Message{
		Value:   []byte(`{}`),
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte("unknown")}},
	})
	assert.ErrorIs(t, err, event.ErrUnknownType)
}

func TestKafkaBus_TopicRouting(t *testing.T) {
	bus := newTestKafkaBus()
	defer func() { _ = bus.writer.Close() }()

	assert.Equal(t, "requests", bus.topicFor(event.StockRestoreRequested{}))
	assert.Equal(t, "completions", bus.topicFor(event.StockRestoreCompleted{}))
	assert.Equal(t, "notifications", bus.topicFor(event.OrderCompleted{}))

	noop := func(ctx context.Context, ev event.Event) error { return nil }
	bus.Subscribe(event.TypeStockReservationRequested, noop)
	bus.Subscribe(event.TypeBalanceDeductionRequested, noop)
	bus.Subscribe(event.TypeStockReservationCompleted, noop)

	assert.Equal(t, map[string]string{
		"requests":    "handlers",
		"completions": "handlers-node-1",
	}, bus.subscribedTopics())
}

func TestKafkaBus_PublishAfterClose(t *testing.T) {
	bus := newTestKafkaBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), event.OrderCompleted{})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestKafkaBus_ReaderConfig(t *testing.T) {
	bus := newTestKafkaBus()
	defer func() { _ = bus.writer.Close() }()

	tests := []struct {
		name        string
		topic       string
		groupID     string
		startOffset int64
	}{
		{"Completions_StartAtTail", "completions", "handlers-node-1", kafka.LastOffset},
		{"Requests_StartAtHead", "requests", "handlers", kafka.FirstOffset},
		{"Notifications_StartAtHead", "notifications", "handlers-notifications", kafka.FirstOffset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bus.readerConfig(tt.topic, tt.groupID)
			assert.Equal(t, tt.topic, cfg.Topic)
			assert.Equal(t, tt.groupID, cfg.GroupID)
			assert.Equal(t, tt.startOffset, cfg.StartOffset)
			assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
			require.NoError(t, cfg.Validate())
		})
	}
}

func TestKafkaBus_StartAfterClose(t *testing.T) {
	bus := newTestKafkaBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Start(context.Background()), ErrBusClosed)
}
