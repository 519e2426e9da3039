package errors

import "strings"

// Stable codes for transporting a failure category across the event bus.
const (
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeInvalidInput = "invalid_input"
	CodeExhausted    = "exhausted"
	CodeBusy         = "busy"
	CodeTimeout      = "timeout"
	CodeInternal     = "internal"
)

var codes = []struct {
	code     string
	sentinel error
}{
	{CodeNotFound, ErrNotFound},
	{CodeConflict, ErrConflict},
	{CodeInvalidInput, ErrInvalidInput},
	{CodeExhausted, ErrExhausted},
	{CodeBusy, ErrBusy},
	{CodeTimeout, ErrTimeout},
	{CodeInternal, ErrInternal},
}

// Code returns the code of the first sentinel err matches, or CodeInternal.
func Code(err error) string {
	for _, c := range codes {
		if Is(err, c.sentinel) {
			return c.code
		}
	}
	return CodeInternal
}

// FromCode rebuilds an error wrapping the sentinel for code.
func FromCode(code, message string) error {
	for _, c := range codes {
		if c.code == code {
			return Wrap(c.sentinel, message)
		}
	}
	return Wrap(ErrInternal, message)
}

// Message returns err's text without the trailing sentinel, so
// "insufficient stock: exhausted" becomes "insufficient stock". Errors that do
// not wrap a known sentinel are reported as "internal error".
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, c := range codes {
		if Is(err, c.sentinel) {
			return strings.TrimSuffix(msg, ": "+c.sentinel.Error())
		}
	}
	return ErrInternal.Error()
}
