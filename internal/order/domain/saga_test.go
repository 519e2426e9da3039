package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/ordersaga/internal/errors"
)

func TestSagaFailure(t *testing.T) {
	cause := apperrors.Wrap(apperrors.ErrExhausted, "insufficient stock")
	var err error = &SagaFailure{State: SagaStateReservingStock, Err: cause}

	assert.ErrorIs(t, err, apperrors.ErrExhausted)
	assert.Equal(t, "insufficient stock", apperrors.Message(err))
	assert.Equal(t, "order saga failed in RESERVING_STOCK: insufficient stock: exhausted", err.(*SagaFailure).String())

	var failure *SagaFailure
	assert.True(t, errors.As(err, &failure))
	assert.Equal(t, SagaStateReservingStock, failure.State)
}

func TestSagaState_Terminal(t *testing.T) {
	assert.True(t, SagaStateCompleted.Terminal())
	assert.True(t, SagaStateFailed.Terminal())
	assert.False(t, SagaStatePersisting.Terminal())
	assert.False(t, SagaStateValidating.Terminal())
}

func TestOrderItem_Subtotal(t *testing.T) {
	assert.Equal(t, int64(30000), OrderItem{Quantity: 3, UnitPrice: 10000}.Subtotal())
}
