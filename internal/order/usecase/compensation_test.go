package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompensationStack_Unwind(t *testing.T) {
	var ran []string
	undo := func(name string, err error) func(context.Context, string) error {
		return func(_ context.Context, reason string) error {
			ran = append(ran, name+":"+reason)
			return err
		}
	}

	var stack compensationStack
	stack.push(compensation{resource: "stock", undo: undo("stock-1", nil)})
	stack.push(compensation{resource: "stock", undo: undo("stock-2", errors.New("unreachable"))})
	stack.push(compensation{resource: "coupon", undo: undo("coupon", nil)})
	assert.Equal(t, 3, stack.len())

	var failed []string
	stack.unwind(context.Background(), "out of stock", func(c compensation, err error) {
		if err != nil {
			failed = append(failed, c.resource)
		}
	})

	assert.Equal(t, []string{"coupon:out of stock", "stock-2:out of stock", "stock-1:out of stock"}, ran)
	assert.Equal(t, []string{"stock"}, failed)
	assert.Equal(t, 0, stack.len())
}

func TestCompensationStack_UnwindEmpty(t *testing.T) {
	var stack compensationStack
	called := false
	stack.unwind(context.Background(), "nothing", func(compensation, error) { called = true })
	assert.False(t, called)
}
