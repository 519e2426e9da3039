package lock

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memLock struct {
	holder *Handle
	// queue holds the tokens of fair waiters in arrival order.
	queue []string
	// changed is closed and replaced whenever the lock may have become free.
	changed chan struct{}
	waiting int
}

func (l *memLock) broadcast() {
	close(l.changed)
	l.changed = make(chan struct{})
}

// MemoryManager is a Manager for a single process.
type MemoryManager struct {
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*memLock
}

// NewMemoryManager creates a MemoryManager.
func NewMemoryManager(logger *slog.Logger) *MemoryManager {
	return &MemoryManager{
		logger: logger,
		locks:  make(map[string]*memLock),
	}
}

// Acquire blocks until key is free, opts.WaitTimeout elapses or ctx is done.
func (m *MemoryManager) Acquire(ctx context.Context, key string, opts Options) (*Handle, error) {
	if err := validate(key, opts); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(opts.WaitTimeout)
	ticket := ""
	if opts.Fair {
		ticket = uuid.NewString()
	}

	m.mu.Lock()
	l := m.entry(key)
	l.waiting++
	if opts.Fair {
		l.queue = append(l.queue, ticket)
	}
	defer func() {
		l.waiting--
		if opts.Fair {
			if i := slices.Index(l.queue, ticket); i >= 0 {
				l.queue = slices.Delete(l.queue, i, i+1)
				if i == 0 {
					l.broadcast()
				}
			}
		}
		m.gc(key, l)
		m.mu.Unlock()
	}()

	for {
		now := time.Now()
		if l.holder != nil && !now.Before(l.holder.LeaseExpiresAt) {
			m.logger.Warn("lock lease expired",
				slog.String("key", key),
				slog.String("owner", l.holder.Owner),
			)
			l.holder = nil
		}

		if l.holder == nil && m.eligible(l, opts.Fair, ticket) {
			h := newHandle(ctx, key, now, opts.LeaseTimeout)
			l.holder = h
			return h, nil
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return nil, ErrNotAcquired
		}
		if l.holder != nil {
			remaining = min(remaining, l.holder.LeaseExpiresAt.Sub(now))
		}

		changed := l.changed
		m.mu.Unlock()
		timer := time.NewTimer(remaining)
		select {
		case <-changed:
		case <-timer.C:
		case <-ctx.Done():
		}
		timer.Stop()
		m.mu.Lock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Release frees the lock if h still holds it.
func (m *MemoryManager) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[h.Key]
	if !ok || l.holder == nil || l.holder.Token != h.Token {
		m.logger.Warn("release ignored, caller is not the lock holder",
			slog.String("key", h.Key),
			slog.String("owner", h.Owner),
		)
		return nil
	}

	l.holder = nil
	l.broadcast()
	m.gc(h.Key, l)
	return nil
}

// eligible reports whether a caller may take a free lock. Fair waiters take it
// in queue order, and unfair callers only when nobody is queued.
func (m *MemoryManager) eligible(l *memLock, fair bool, ticket string) bool {
	if len(l.queue) == 0 {
		return true
	}
	return fair && l.queue[0] == ticket
}

func (m *MemoryManager) entry(key string) *memLock {
	l, ok := m.locks[key]
	if !ok {
		l = &memLock{changed: make(chan struct{})}
		m.locks[key] = l
	}
	return l
}

func (m *MemoryManager) gc(key string, l *memLock) {
	if l.holder == nil && l.waiting == 0 && len(l.queue) == 0 {
		delete(m.locks, key)
	}
}
