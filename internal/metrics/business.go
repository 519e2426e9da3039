package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/allisson/ordersaga/internal/errors"
)

// BusinessMetrics defines the interface for recording business operation metrics.
// Implementations track operation counts and durations for observability across
// the order saga and the resource domains (inventory, coupon, balance).
type BusinessMetrics interface {
	// RecordOperation records a business operation with its status.
	// Domain examples: "order", "coupon", "balance"
	// Operation examples: "order_create", "coupon_issue", "balance_charge"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of a business operation with its status.
	// Duration is recorded in seconds as a histogram for percentile calculations.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordCompensation records one compensating action run by the order saga.
	// Resource examples: "stock", "coupon", "balance". A status of "error" means the
	// restore failed and needs operator attention.
	RecordCompensation(ctx context.Context, resource, status string)

	// RecordLateCompletion records a completion event that arrived after its waiter
	// gave up. Action is what the reconciler did with it ("restored", "ignored").
	RecordLateCompletion(ctx context.Context, eventType, action string)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry metrics.
type businessMetrics struct {
	operationCounter    metric.Int64Counter
	durationHisto       metric.Float64Histogram
	compensationCounter metric.Int64Counter
	lateCounter         metric.Int64Counter
}

// NewBusinessMetrics creates a new BusinessMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "ordersaga").
// Returns error if meters cannot be initialized.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	compensationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_saga_compensations_total", namespace),
		metric.WithDescription("Total number of saga compensating actions"),
		metric.WithUnit("{compensation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compensation counter: %w", err)
	}

	lateCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_late_completions_total", namespace),
		metric.WithDescription("Total number of completion events received after their deadline"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create late completion counter: %w", err)
	}

	return &businessMetrics{
		operationCounter:    operationCounter,
		durationHisto:       durationHisto,
		compensationCounter: compensationCounter,
		lateCounter:         lateCounter,
	}, nil
}

// RecordOperation increments the operation counter with domain, operation, and status labels.
func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with domain, operation, and status labels.
func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordCompensation increments the compensation counter with resource and status labels.
func (b *businessMetrics) RecordCompensation(ctx context.Context, resource, status string) {
	b.compensationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("resource", resource),
			attribute.String("status", status),
		),
	)
}

// RecordLateCompletion increments the late completion counter.
func (b *businessMetrics) RecordLateCompletion(ctx context.Context, eventType, action string) {
	b.lateCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("event_type", eventType),
			attribute.String("action", action),
		),
	)
}

// NoOpBusinessMetrics is a no-op implementation of BusinessMetrics for when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

// RecordCompensation does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordCompensation(ctx context.Context, resource, status string) {}

// RecordLateCompletion does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordLateCompletion(ctx context.Context, eventType, action string) {}

// StatusOf classifies err as a metric status label. Expected business outcomes
// get their own label so dashboards can separate them from faults.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.Is(err, apperrors.ErrExhausted):
		return "rejected"
	case apperrors.Is(err, apperrors.ErrBusy):
		return "busy"
	case apperrors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
