package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned when decoding an event type with no registered decoder.
var ErrUnknownType = errors.New("unknown event type")

type decoder func(data []byte) (Event, error)

var decoders = map[string]decoder{}

func register[T Event]() {
	var zero T
	decoders[zero.EventType()] = func(data []byte) (Event, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func init() {
	register[StockReservationRequested]()
	register[StockReservationCompleted]()
	register[CouponUsageRequested]()
	register[CouponUsageCompleted]()
	register[BalanceDeductionRequested]()
	register[BalanceDeductionCompleted]()
	register[StockRestoreRequested]()
	register[StockRestoreCompleted]()
	register[CouponRestoreRequested]()
	register[CouponRestoreCompleted]()
	register[BalanceRestoreRequested]()
	register[BalanceRestoreCompleted]()
	register[OrderCompleted]()
}

// Encode serializes an event payload as JSON.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ev.EventType(), err)
	}
	return data, nil
}

// Decode deserializes a JSON payload into the event registered for eventType.
func Decode(eventType string, data []byte) (Event, error) {
	dec, ok := decoders[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, eventType)
	}
	ev, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", eventType, err)
	}
	return ev, nil
}

// Known reports whether eventType has a registered decoder.
func Known(eventType string) bool {
	_, ok := decoders[eventType]
	return ok
}

// Kind classifies events for transports that route by category.
type Kind int

const (
	KindRequest Kind = iota
	KindCompletion
	KindNotification
)

// KindOf returns the category of ev.
func KindOf(ev Event) Kind {
	switch ev.(type) {
	case Completion:
		return KindCompletion
	case Request:
		return KindRequest
	default:
		return KindNotification
	}
}
