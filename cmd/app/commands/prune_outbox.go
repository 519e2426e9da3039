package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// OutboxPruner deletes relayed outbox events past their retention.
type OutboxPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// RunPruneOutbox removes processed outbox events once, outside the server loop.
func RunPruneOutbox(ctx context.Context, pruner OutboxPruner, logger *slog.Logger, w io.Writer, format string) error {
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		return err
	}

	logger.Info("outbox pruned", slog.Int64("deleted", deleted))

	return writeOutput(w, format,
		fmt.Sprintf("Deleted %d processed outbox events", deleted),
		map[string]any{"deleted": deleted},
	)
}
