package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/ordersaga/internal/errors"
)

func TestEncodeDecode(t *testing.T) {
	t.Run("Success_CompletionKeepsOutcomeFields", func(t *testing.T) {
		productID := uuid.Must(uuid.NewV7())
		in := StockReservationCompleted{
			Outcome:     Succeed("corr-1"),
			ProductID:   productID,
			ProductName: "keyboard",
			UnitPrice:   10000,
			Quantity:    2,
		}

		data, err := Encode(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"correlation_id": "corr-1",
			"success": true,
			"product_id": "`+productID.String()+`",
			"product_name": "keyboard",
			"unit_price": 10000,
			"quantity": 2
		}`, string(data))

		out, err := Decode(TypeStockReservationCompleted, data)
		require.NoError(t, err)
		assert.Equal(t, in, out)

		completion, ok := out.(Completion)
		require.True(t, ok)
		assert.Equal(t, "corr-1", completion.Correlation())
		assert.True(t, completion.Succeeded())
		assert.NoError(t, completion.Err())
	})

	t.Run("Success_FailedCompletionCarriesReason", func(t *testing.T) {
		in := BalanceDeductionCompleted{
			Outcome: Fail("corr-2", apperrors.Wrap(apperrors.ErrExhausted, "insufficient balance")),
			Amount:  500,
		}

		data, err := Encode(in)
		require.NoError(t, err)

		out, err := Decode(TypeBalanceDeductionCompleted, data)
		require.NoError(t, err)

		completion := out.(Completion)
		assert.False(t, completion.Succeeded())
		assert.Equal(t, "insufficient balance", completion.FailureReason())
		assert.ErrorIs(t, completion.Err(), apperrors.ErrExhausted)
	})

	t.Run("Error_UnknownType", func(t *testing.T) {
		_, err := Decode("payment.requested", []byte(`{}`))
		assert.ErrorIs(t, err, ErrUnknownType)
		assert.False(t, Known("payment.requested"))
	})

	t.Run("Error_MalformedPayload", func(t *testing.T) {
		_, err := Decode(TypeStockReservationRequested, []byte(`{"quantity":"two"}`))
		assert.Error(t, err)
	})
}

func TestAllTypesRegistered(t *testing.T) {
	for _, typ := range []string{
		TypeStockReservationRequested, TypeStockReservationCompleted,
		TypeCouponUsageRequested, TypeCouponUsageCompleted,
		TypeBalanceDeductionRequested, TypeBalanceDeductionCompleted,
		TypeStockRestoreRequested, TypeStockRestoreCompleted,
		TypeCouponRestoreRequested, TypeCouponRestoreCompleted,
		TypeBalanceRestoreRequested, TypeBalanceRestoreCompleted,
		TypeOrderCompleted,
	} {
		assert.True(t, Known(typ), typ)
	}
}

func TestKindOf(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())

	assert.Equal(t, KindRequest, KindOf(BalanceDeductionRequested{UserID: userID}))
	assert.Equal(t, KindCompletion, KindOf(BalanceDeductionCompleted{}))
	assert.Equal(t, KindNotification, KindOf(OrderCompleted{UserID: userID}))
}

func TestKeys(t *testing.T) {
	productID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())
	userCouponID := uuid.Must(uuid.NewV7())

	assert.Equal(t, productID.String(), StockReservationRequested{ProductID: productID}.Key())
	assert.Equal(t, productID.String(), StockRestoreRequested{ProductID: productID}.Key())
	assert.Equal(t, userCouponID.String(), CouponUsageRequested{UserCouponID: userCouponID}.Key())
	assert.Equal(t, userID.String(), BalanceRestoreRequested{UserID: userID}.Key())
	assert.Equal(t, "corr-9", CouponRestoreCompleted{Outcome: Succeed("corr-9")}.Key())
	assert.NotEmpty(t, NewCorrelationID())
}
