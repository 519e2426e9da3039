package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	assert.Equal(t, CodeNotFound, Code(Wrap(ErrNotFound, "product not found")))
	assert.Equal(t, CodeExhausted, Code(Wrap(Wrap(ErrExhausted, "insufficient stock"), "reserve")))
	assert.Equal(t, CodeBusy, Code(ErrBusy))
	assert.Equal(t, CodeInternal, Code(errors.New("connection refused")))
}

func TestFromCode(t *testing.T) {
	err := FromCode(CodeExhausted, "insufficient balance")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, "insufficient balance: exhausted", err.Error())

	assert.ErrorIs(t, FromCode("bogus", "x"), ErrInternal)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "insufficient stock", Message(Wrap(ErrExhausted, "insufficient stock")))
	assert.Equal(t, "reserve: coupon sold out", Message(Wrap(Wrap(ErrExhausted, "coupon sold out"), "reserve")))
	assert.Equal(t, "internal error", Message(errors.New("pq: connection refused")))
	assert.Equal(t, "", Message(nil))
}
