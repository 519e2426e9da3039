// Package usecase relays events stored in the transactional outbox to the event bus.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/ordersaga/internal/database"
	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/eventbus"
	"github.com/allisson/ordersaga/internal/outbox/domain"
)

// Config holds outbox use case configuration
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// Retention is how long processed events are kept. Zero keeps them forever.
	Retention time.Duration
	// PruneInterval is how often processed events past Retention are deleted.
	PruneInterval time.Duration
}

// OutboxEventRepository defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// EventProcessor defines the interface for processing different event types
type EventProcessor interface {
	Process(ctx context.Context, event *domain.OutboxEvent) error
}

// UseCase defines the interface for outbox use cases
type UseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
	Prune(ctx context.Context) (int64, error)
}

// OutboxUseCase implements business logic for processing outbox events
type OutboxUseCase struct {
	config         Config
	txManager      database.TxManager
	outboxRepo     OutboxEventRepository
	eventProcessor EventProcessor
	logger         *slog.Logger
}

// NewOutboxUseCase creates a new OutboxUseCase
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	eventProcessor EventProcessor,
	logger *slog.Logger,
) *OutboxUseCase {
	return &OutboxUseCase{
		config:         config,
		txManager:      txManager,
		outboxRepo:     outboxRepo,
		eventProcessor: eventProcessor,
		logger:         logger,
	}
}

// Start starts the outbox event processing loop
func (uc *OutboxUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox event processor",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	var pruneC <-chan time.Time
	if uc.config.Retention > 0 && uc.config.PruneInterval > 0 {
		pruneTicker := time.NewTicker(uc.config.PruneInterval)
		defer pruneTicker.Stop()
		pruneC = pruneTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox event processor")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessEvents(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process events", slog.Any("error", err))
				}
			}
		case <-pruneC:
			if _, err := uc.Prune(ctx); err != nil && uc.logger != nil {
				uc.logger.Error("failed to prune outbox", slog.Any("error", err))
			}
		}
	}
}

// Prune deletes processed events older than the configured retention.
func (uc *OutboxUseCase) Prune(ctx context.Context) (int64, error) {
	if uc.config.Retention <= 0 {
		return 0, nil
	}
	deleted, err := uc.outboxRepo.DeleteProcessedBefore(ctx, time.Now().UTC().Add(-uc.config.Retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune outbox events: %w", err)
	}
	if deleted > 0 && uc.logger != nil {
		uc.logger.Info("pruned outbox events", slog.Int64("count", deleted))
	}
	return deleted, nil
}

// ProcessEvents retrieves and processes pending events from the outbox in a transaction
func (uc *OutboxUseCase) ProcessEvents(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		// Get pending events
		events, err := uc.outboxRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		if uc.logger != nil {
			uc.logger.Info("processing events", slog.Int("count", len(events)))
		}

		for _, event := range events {
			if err := uc.processEvent(ctx, event); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process event",
						slog.String("event_id", event.ID.String()),
						slog.String("event_type", event.EventType),
						slog.Any("error", err),
					)
				}

				// Update event as failed
				event.Retries++
				errorMsg := err.Error()
				event.LastError = &errorMsg

				if event.Retries >= uc.config.MaxRetries {
					event.Status = domain.OutboxEventStatusFailed
				}

				if err := uc.outboxRepo.Update(ctx, event); err != nil {
					return err
				}
				continue
			}

			// Mark event as processed
			now := time.Now().UTC()
			event.Status = domain.OutboxEventStatusProcessed
			event.ProcessedAt = &now

			if err := uc.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
		}

		return nil
	})
}

// processEvent handles a single outbox event using the configured event processor
func (uc *OutboxUseCase) processEvent(ctx context.Context, event *domain.OutboxEvent) error {
	if uc.logger != nil {
		uc.logger.Info("processing event",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
		)
	}

	return uc.eventProcessor.Process(ctx, event)
}

// PublishingEventProcessor decodes outbox payloads through the event registry
// and publishes them on the event bus.
type PublishingEventProcessor struct {
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewPublishingEventProcessor creates a new PublishingEventProcessor
func NewPublishingEventProcessor(publisher eventbus.Publisher, logger *slog.Logger) *PublishingEventProcessor {
	return &PublishingEventProcessor{
		publisher: publisher,
		logger:    logger,
	}
}

// Process publishes the stored event. Unknown types and corrupt payloads are
// returned as errors so the row is retried and eventually marked failed.
func (p *PublishingEventProcessor) Process(ctx context.Context, outboxEvent *domain.OutboxEvent) error {
	ev, err := event.Decode(outboxEvent.EventType, []byte(outboxEvent.Payload))
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish %s: %w", outboxEvent.EventType, err)
	}

	if p.logger != nil {
		p.logger.Debug("outbox event published",
			slog.String("event_id", outboxEvent.ID.String()),
			slog.String("event_type", outboxEvent.EventType),
		)
	}
	return nil
}
