// Package lock provides named mutual exclusion with a wait timeout, a lease that
// expires on its own, and optional FIFO fairness among waiters.
package lock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ordersaga/internal/errors"
)

// ErrNotAcquired is returned when the lock could not be obtained within the wait
// timeout. It wraps ErrBusy: callers usually report it as "try again shortly".
var ErrNotAcquired = apperrors.Wrap(apperrors.ErrBusy, "lock not acquired")

// Options controls a single acquisition.
type Options struct {
	// WaitTimeout bounds how long Acquire blocks. Zero means try once.
	WaitTimeout time.Duration
	// LeaseTimeout is how long the lock is held if never released.
	LeaseTimeout time.Duration
	// Fair serves waiters in arrival order.
	Fair bool
}

// Handle identifies one successful acquisition.
type Handle struct {
	Key            string
	Owner          string
	Token          string
	LeaseExpiresAt time.Time
}

// Manager acquires and releases named locks.
//
// Release by a caller that no longer holds the lock (its lease expired and
// someone else took it) is a logged no-op and returns nil.
type Manager interface {
	Acquire(ctx context.Context, key string, opts Options) (*Handle, error)
	Release(ctx context.Context, h *Handle) error
}

// AcquireFair acquires key serving waiters in arrival order.
func AcquireFair(ctx context.Context, m Manager, key string, opts Options) (*Handle, error) {
	opts.Fair = true
	return m.Acquire(ctx, key, opts)
}

// WithLock runs fn while holding key. The lock is released when fn returns, even
// if it panics.
func WithLock(ctx context.Context, m Manager, key string, opts Options, fn func(ctx context.Context) error) error {
	h, err := m.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		// A fresh context: fn may have exhausted ctx and the lock must still go.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = m.Release(releaseCtx, h)
	}()
	return fn(ctx)
}

type ownerKey struct{}

// WithOwner attaches a caller identity recorded on handles acquired with ctx.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

var processOwner = func() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}()

func ownerFrom(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey{}).(string); ok && owner != "" {
		return owner
	}
	return processOwner
}

func newHandle(ctx context.Context, key string, now time.Time, lease time.Duration) *Handle {
	return &Handle{
		Key:            key,
		Owner:          ownerFrom(ctx),
		Token:          uuid.Must(uuid.NewV7()).String(),
		LeaseExpiresAt: now.Add(lease),
	}
}

func validate(key string, opts Options) error {
	if key == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "lock key is required")
	}
	if opts.LeaseTimeout <= 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "lease timeout must be positive")
	}
	if opts.WaitTimeout < 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "wait timeout must not be negative")
	}
	return nil
}

const (
	backoffStart      = 10 * time.Millisecond
	backoffMax        = 250 * time.Millisecond
	backoffMultiplier = 1.5
)

// backoff grows the polling interval between attempts, never past limit.
type backoff struct {
	next time.Duration
}

func newBackoff() *backoff {
	return &backoff{next: backoffStart}
}

func (b *backoff) Next(limit time.Duration) time.Duration {
	sleep := b.next
	if limit > 0 && sleep > limit {
		sleep = limit
	}
	b.next = min(time.Duration(float64(b.next)*backoffMultiplier), backoffMax)
	return sleep
}
