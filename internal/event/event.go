// Package event defines the request, completion and notification events exchanged
// between the order saga and the resource handlers.
package event

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ordersaga/internal/errors"
)

// Event types.
const (
	TypeStockReservationRequested = "stock.reservation.requested"
	TypeStockReservationCompleted = "stock.reservation.completed"
	TypeCouponUsageRequested      = "coupon.usage.requested"
	TypeCouponUsageCompleted      = "coupon.usage.completed"
	TypeBalanceDeductionRequested = "balance.deduction.requested"
	TypeBalanceDeductionCompleted = "balance.deduction.completed"
	TypeStockRestoreRequested     = "stock.restore.requested"
	TypeStockRestoreCompleted     = "stock.restore.completed"
	TypeCouponRestoreRequested    = "coupon.restore.requested"
	TypeCouponRestoreCompleted    = "coupon.restore.completed"
	TypeBalanceRestoreRequested   = "balance.restore.requested"
	TypeBalanceRestoreCompleted   = "balance.restore.completed"
	TypeOrderCompleted            = "order.completed"
)

// Event is anything that travels on the event bus. Key is the partition key;
// events with the same key are delivered in publish order.
type Event interface {
	EventType() string
	Key() string
}

// Request is an event that expects a Completion tagged with the same correlation id.
type Request interface {
	Event
	Correlation() string
}

// Completion is the reply to a Request. Failures are data: Succeeded reports
// false, FailureReason carries a human-readable reason and Err rebuilds an
// error in the application taxonomy.
type Completion interface {
	Event
	Correlation() string
	Succeeded() bool
	FailureReason() string
	Err() error
}

// Envelope carries the correlation id shared by requests and their completions.
type Envelope struct {
	CorrelationID string `json:"correlation_id"`
}

// Correlation returns the correlation id.
func (e Envelope) Correlation() string { return e.CorrelationID }

// Outcome is embedded by every completion event.
type Outcome struct {
	Envelope
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Succeeded reports whether the handler applied its mutation.
func (o Outcome) Succeeded() bool { return o.Success }

// FailureReason returns the reason reported by the handler.
func (o Outcome) FailureReason() string { return o.Reason }

// Err returns nil on success, otherwise an error wrapping the sentinel named by Code.
func (o Outcome) Err() error {
	if o.Success {
		return nil
	}
	return apperrors.FromCode(o.Code, o.Reason)
}

// Key partitions completions by correlation id.
func (o Outcome) Key() string { return o.CorrelationID }

// Succeed builds a successful outcome.
func Succeed(correlationID string) Outcome {
	return Outcome{Envelope: Envelope{CorrelationID: correlationID}, Success: true}
}

// Fail builds a failed outcome from err.
func Fail(correlationID string, err error) Outcome {
	return Outcome{
		Envelope: Envelope{CorrelationID: correlationID},
		Code:     apperrors.Code(err),
		Reason:   apperrors.Message(err),
	}
}

// NewCorrelationID returns a fresh, time-ordered correlation id.
func NewCorrelationID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// StockReservationRequested asks the stock handler to decrement a product's stock.
type StockReservationRequested struct {
	Envelope
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (StockReservationRequested) EventType() string { return TypeStockReservationRequested }
func (e StockReservationRequested) Key() string { return e.ProductID.String() }

// StockReservationCompleted reports the result of a stock reservation.
type StockReservationCompleted struct {
	Outcome
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	UnitPrice   int64     `json:"unit_price,omitempty"`
	Quantity    int       `json:"quantity"`
}

func (StockReservationCompleted) EventType() string { return TypeStockReservationCompleted }

// CouponUsageRequested asks the coupon handler to mark a user coupon as used.
type CouponUsageRequested struct {
	Envelope
	UserID       uuid.UUID `json:"user_id"`
	UserCouponID uuid.UUID `json:"user_coupon_id"`
	OrderAmount  int64     `json:"order_amount"`
}

func (CouponUsageRequested) EventType() string { return TypeCouponUsageRequested }
func (e CouponUsageRequested) Key() string { return e.UserCouponID.String() }

// CouponUsageCompleted reports the result of applying a coupon.
type CouponUsageCompleted struct {
	Outcome
	UserID           uuid.UUID `json:"user_id"`
	UserCouponID     uuid.UUID `json:"user_coupon_id"`
	DiscountedAmount int64     `json:"discounted_amount,omitempty"`
	DiscountAmount   int64     `json:"discount_amount,omitempty"`
}

func (CouponUsageCompleted) EventType() string { return TypeCouponUsageCompleted }

// BalanceDeductionRequested asks the balance handler to debit a user.
type BalanceDeductionRequested struct {
	Envelope
	UserID uuid.UUID `json:"user_id"`
	Amount int64     `json:"amount"`
}

func (BalanceDeductionRequested) EventType() string { return TypeBalanceDeductionRequested }
func (e BalanceDeductionRequested) Key() string { return e.UserID.String() }

// BalanceDeductionCompleted reports the result of a balance deduction.
type BalanceDeductionCompleted struct {
	Outcome
	UserID           uuid.UUID `json:"user_id"`
	Amount           int64     `json:"amount"`
	RemainingBalance int64     `json:"remaining_balance,omitempty"`
}

func (BalanceDeductionCompleted) EventType() string { return TypeBalanceDeductionCompleted }

// StockRestoreRequested compensates a stock reservation.
type StockRestoreRequested struct {
	Envelope
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
}

func (StockRestoreRequested) EventType() string { return TypeStockRestoreRequested }
func (e StockRestoreRequested) Key() string { return e.ProductID.String() }

// StockRestoreCompleted reports the result of a stock restore.
type StockRestoreCompleted struct {
	Outcome
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (StockRestoreCompleted) EventType() string { return TypeStockRestoreCompleted }

// CouponRestoreRequested reverts a used coupon to AVAILABLE.
type CouponRestoreRequested struct {
	Envelope
	UserID       uuid.UUID `json:"user_id"`
	UserCouponID uuid.UUID `json:"user_coupon_id"`
	Reason       string    `json:"reason"`
}

func (CouponRestoreRequested) EventType() string { return TypeCouponRestoreRequested }
func (e CouponRestoreRequested) Key() string { return e.UserCouponID.String() }

// CouponRestoreCompleted reports the result of a coupon restore.
type CouponRestoreCompleted struct {
	Outcome
	UserCouponID uuid.UUID `json:"user_coupon_id"`
}

func (CouponRestoreCompleted) EventType() string { return TypeCouponRestoreCompleted }

// BalanceRestoreRequested credits back a deducted amount.
type BalanceRestoreRequested struct {
	Envelope
	UserID uuid.UUID `json:"user_id"`
	Amount int64     `json:"amount"`
	Reason string    `json:"reason"`
}

func (BalanceRestoreRequested) EventType() string { return TypeBalanceRestoreRequested }
func (e BalanceRestoreRequested) Key() string { return e.UserID.String() }

// BalanceRestoreCompleted reports the result of a balance restore.
type BalanceRestoreCompleted struct {
	Outcome
	UserID           uuid.UUID `json:"user_id"`
	Amount           int64     `json:"amount"`
	RemainingBalance int64     `json:"remaining_balance,omitempty"`
}

func (BalanceRestoreCompleted) EventType() string { return TypeBalanceRestoreCompleted }

// OrderCompletedItem is one line of a completed order.
type OrderCompletedItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
}

// OrderCompleted is published once an order has been persisted. Nothing replies to it.
type OrderCompleted struct {
	OrderID        uuid.UUID            `json:"order_id"`
	UserID         uuid.UUID            `json:"user_id"`
	Items          []OrderCompletedItem `json:"items"`
	TotalAmount    int64                `json:"total_amount"`
	DiscountAmount int64                `json:"discount_amount"`
	FinalAmount    int64                `json:"final_amount"`
	UserCouponID   *uuid.UUID           `json:"user_coupon_id,omitempty"`
	CompletedAt    time.Time            `json:"completed_at"`
}

func (OrderCompleted) EventType() string { return TypeOrderCompleted }
func (e OrderCompleted) Key() string { return e.UserID.String() }
