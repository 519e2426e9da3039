package usecase

import (
	"context"
	"log/slog"
)

// compensation undoes one committed saga step.
type compensation struct {
	resource string
	attrs    []slog.Attr
	undo     func(ctx context.Context, reason string) error
}

// compensationStack holds the undo actions of committed steps. Unwinding runs
// them last in, first out.
type compensationStack struct {
	items []compensation
}

func (s *compensationStack) push(c compensation) {
	s.items = append(s.items, c)
}

func (s *compensationStack) len() int {
	return len(s.items)
}

// unwind runs every compensation in reverse order of registration and empties
// the stack. A failing compensation does not stop the remaining ones; report
// is called once per compensation with its outcome.
func (s *compensationStack) unwind(
	ctx context.Context,
	reason string,
	report func(c compensation, err error),
) {
	for i := len(s.items) - 1; i >= 0; i-- {
		c := s.items[i]
		report(c, c.undo(ctx, reason))
	}
	s.items = nil
}
