package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/ordersaga/internal/errors"
)

// assertBizMetricLine checks that the Prometheus output contains a business metric
// matching the given name, partial label pattern, and value. Uses regex to handle
// extra OTel scope labels injected by the Prometheus exporter.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)
	return w.Body.String()
}

func TestNewBusinessMetrics(t *testing.T) {
	t.Run("Success_CreateBusinessMetrics", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)

		businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

		require.NoError(t, err)
		assert.NotNil(t, businessMetrics)
	})
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()

	assert.NotNil(t, noOpMetrics)
	assert.IsType(t, &NoOpBusinessMetrics{}, noOpMetrics)

	t.Run("NoOp_DoesNotPanic", func(t *testing.T) {
		ctx := context.Background()
		noOpMetrics.RecordOperation(ctx, "order", "order_create", "success")
		noOpMetrics.RecordDuration(ctx, "order", "order_create", 100*time.Millisecond, "error")
		noOpMetrics.RecordCompensation(ctx, "stock", "success")
		noOpMetrics.RecordLateCompletion(ctx, "stock.reservation.completed", "restored")
	})
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()

	bm.RecordOperation(ctx, "order", "order_create", "success")
	bm.RecordOperation(ctx, "order", "order_create", "success")
	bm.RecordOperation(ctx, "order", "order_create", "error")
	bm.RecordOperation(ctx, "coupon", "coupon_issue", "success")

	bm.RecordDuration(ctx, "order", "order_create", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "order", "order_create", 60*time.Millisecond, "success")

	bm.RecordCompensation(ctx, "stock", "success")
	bm.RecordCompensation(ctx, "stock", "success")
	bm.RecordCompensation(ctx, "balance", "error")

	bm.RecordLateCompletion(ctx, "balance.deduction.completed", "restored")

	output := scrape(t, provider)

	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="order".*operation="order_create".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="order".*operation="order_create".*status="error"`,
		`1`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operation_duration_seconds_count`,
		`domain="order".*operation="order_create".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_saga_compensations_total`,
		`resource="stock".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_saga_compensations_total`,
		`resource="balance".*status="error"`,
		`1`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_late_completions_total`,
		`action="restored".*event_type="balance.deduction.completed"`,
		`1`,
	)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, "success"},
		{apperrors.Wrap(apperrors.ErrExhausted, "coupon sold out"), "rejected"},
		{apperrors.Wrap(apperrors.ErrBusy, "lock not acquired"), "busy"},
		{apperrors.ErrTimeout, "timeout"},
		{apperrors.Wrap(apperrors.ErrNotFound, "user not found"), "error"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusOf(tt.err))
		})
	}
}
