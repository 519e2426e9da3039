package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ordersaga/internal/event"
	"github.com/allisson/ordersaga/internal/lock"
	userDomain "github.com/allisson/ordersaga/internal/user/domain"
	userRepository "github.com/allisson/ordersaga/internal/user/repository"
)

var testLockOpts = lock.Options{WaitTimeout: 3 * time.Second, LeaseTimeout: 10 * time.Second}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newUser(t *testing.T, users *userRepository.MemoryUserRepository) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, users.Create(context.Background(), &userDomain.User{
		ID:    id,
		Name:  "Customer",
		Email: id.String() + "@example.com",
	}))
	return id
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) last() event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}
