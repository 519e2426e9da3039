package domain

import "fmt"

// SagaState is a state of the order creation saga. The forward path is
// VALIDATING, RESERVING_STOCK, APPLYING_COUPON, DEDUCTING_BALANCE, PERSISTING,
// COMPLETED; FAILED is reachable from every non-terminal state.
type SagaState string

const (
	SagaStateValidating       SagaState = "VALIDATING"
	SagaStateReservingStock   SagaState = "RESERVING_STOCK"
	SagaStateApplyingCoupon   SagaState = "APPLYING_COUPON"
	SagaStateDeductingBalance SagaState = "DEDUCTING_BALANCE"
	SagaStatePersisting       SagaState = "PERSISTING"
	SagaStateCompleted        SagaState = "COMPLETED"
	SagaStateFailed           SagaState = "FAILED"
)

// Terminal reports whether no transition leaves s.
func (s SagaState) Terminal() bool {
	return s == SagaStateCompleted || s == SagaStateFailed
}

// SagaFailure is returned when an order saga ends in FAILED. State is the
// state the saga was in when it failed. Err wraps one of the application
// sentinels, so errors.Is classifies the failure.
type SagaFailure struct {
	State SagaState
	Err   error
}

func (f *SagaFailure) Error() string {
	return f.Err.Error()
}

func (f *SagaFailure) Unwrap() error {
	return f.Err
}

// String renders the failure with its state for logs.
func (f *SagaFailure) String() string {
	return fmt.Sprintf("order saga failed in %s: %v", f.State, f.Err)
}

// FailedStep names the state the saga failed in.
func (f *SagaFailure) FailedStep() string {
	return string(f.State)
}
