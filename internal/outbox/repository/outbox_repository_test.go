package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ordersaga/internal/outbox/domain"
)

var outboxColumns = []string{
	"id", "event_type", "payload", "status", "retries", "last_error", "processed_at", "created_at", "updated_at",
}

func TestPostgreSQLOutboxEventRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	event := &domain.OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: "order.completed",
		Payload:   `{"order_id":"x"}`,
		Status:    domain.OutboxEventStatusPending,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
		WithArgs(event.ID, event.EventType, event.Payload, event.Status, 0, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgreSQLOutboxEventRepository(db).Create(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxEventRepository_GetPendingEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(domain.OutboxEventStatusPending, 10).
		WillReturnRows(sqlmock.NewRows(outboxColumns).
			AddRow(id.String(), "order.completed", `{}`, "pending", 0, nil, nil, now, now))

	events, err := NewPostgreSQLOutboxEventRepository(db).GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Nil(t, events[0].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxEventRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	processedAt := time.Now().UTC()
	event := &domain.OutboxEvent{
		ID:          uuid.Must(uuid.NewV7()),
		EventType:   "order.completed",
		Payload:     `{}`,
		Status:      domain.OutboxEventStatusProcessed,
		ProcessedAt: &processedAt,
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
		WithArgs(event.EventType, event.Payload, event.Status, 0, nil, &processedAt, event.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgreSQLOutboxEventRepository(db).Update(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOutboxEventRepository_GetPendingEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id := uuid.Must(uuid.NewV7())
	idBytes, _ := id.MarshalBinary()
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ?")).
		WithArgs(domain.OutboxEventStatusPending, 5).
		WillReturnRows(sqlmock.NewRows(outboxColumns).
			AddRow(idBytes, "order.completed", `{}`, "pending", 1, "boom", nil, now, now))

	events, err := NewMySQLOutboxEventRepository(db).GetPendingEvents(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	require.NotNil(t, events[0].LastError)
	assert.Equal(t, "boom", *events[0].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryOutboxEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOutboxEventRepository()

	first := &domain.OutboxEvent{ID: uuid.Must(uuid.NewV7()), EventType: "a", Status: domain.OutboxEventStatusPending}
	second := &domain.OutboxEvent{ID: uuid.Must(uuid.NewV7()), EventType: "b", Status: domain.OutboxEventStatusPending}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.Error(t, repo.Create(ctx, first))

	pending, err := repo.GetPendingEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	pending[0].Status = domain.OutboxEventStatusProcessed
	require.NoError(t, repo.Update(ctx, pending[0]))

	pending, err = repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Len(t, repo.All(), 2)
}

func TestPostgreSQLOutboxEventRepository_DeleteProcessedBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cutoff := time.Now().UTC().Add(-time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM outbox_events WHERE status = $1 AND processed_at < $2")).
		WithArgs(domain.OutboxEventStatusProcessed, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := NewPostgreSQLOutboxEventRepository(db).DeleteProcessedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOutboxEventRepository_UpdateAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	event := &domain.OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: "order.completed",
		Payload:   `{}`,
		Status:    domain.OutboxEventStatusFailed,
		Retries:   5,
	}
	idBytes, _ := event.ID.MarshalBinary()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
		WithArgs(event.EventType, event.Payload, event.Status, 5, nil, nil, idBytes).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cutoff := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM outbox_events WHERE status = ? AND processed_at < ?")).
		WithArgs(domain.OutboxEventStatusProcessed, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewMySQLOutboxEventRepository(db)
	require.NoError(t, repo.Update(context.Background(), event))
	deleted, err := repo.DeleteProcessedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodeID(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	raw, _ := id.MarshalBinary()

	for name, in := range map[string]any{
		"binary": raw,
		"text":   []byte(id.String()),
		"string": id.String(),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := decodeID(in)
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}

	_, err := decodeID(int64(1))
	assert.Error(t, err)
}

func TestMemoryOutboxEventRepository_DeleteProcessedBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOutboxEventRepository()

	old := time.Now().UTC().Add(-2 * time.Hour)
	recent := time.Now().UTC()
	events := []*domain.OutboxEvent{
		{ID: uuid.Must(uuid.NewV7()), Status: domain.OutboxEventStatusProcessed, ProcessedAt: &old},
		{ID: uuid.Must(uuid.NewV7()), Status: domain.OutboxEventStatusProcessed, ProcessedAt: &recent},
		{ID: uuid.Must(uuid.NewV7()), Status: domain.OutboxEventStatusFailed, ProcessedAt: &old},
		{ID: uuid.Must(uuid.NewV7()), Status: domain.OutboxEventStatusPending},
	}
	for _, e := range events {
		require.NoError(t, repo.Create(ctx, e))
	}

	deleted, err := repo.DeleteProcessedBefore(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining := repo.All()
	require.Len(t, remaining, 3)
	assert.Equal(t, events[1].ID, remaining[0].ID)
}

