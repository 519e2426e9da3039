package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// fairAcquireScript grants the lock to the head of the waiter queue. Waiters
// whose deadline passed are dropped from the head first, so a crashed waiter
// cannot block the queue.
//
// KEYS: lock, queue (zset arrival->ticket), deadlines (hash ticket->deadline ms)
// ARGV: ticket, token, lease ms, now ms
var fairAcquireScript = redis.NewScript(`
local now = tonumber(ARGV[4])
while true do
	local head = redis.call("ZRANGE", KEYS[2], 0, 0)[1]
	if not head then
		break
	end
	local deadline = tonumber(redis.call("HGET", KEYS[3], head) or "0")
	if deadline >= now then
		break
	end
	redis.call("ZREM", KEYS[2], head)
	redis.call("HDEL", KEYS[3], head)
end
local head = redis.call("ZRANGE", KEYS[2], 0, 0)[1]
if head ~= ARGV[1] then
	return 0
end
if redis.call("SET", KEYS[1], ARGV[2], "NX", "PX", ARGV[3]) then
	redis.call("ZREM", KEYS[2], ARGV[1])
	redis.call("HDEL", KEYS[3], ARGV[1])
	return 1
end
return 0
`)

// staleGrace is added to a waiter's deadline before other waiters may evict it.
const staleGrace = time.Second

// RedisManager is a Manager backed by Redis, shared by every instance of the service.
type RedisManager struct {
	client redis.UniversalClient
	logger *slog.Logger
	prefix string
}

// NewRedisManager creates a RedisManager. Keys are stored under prefix.
func NewRedisManager(client redis.UniversalClient, logger *slog.Logger, prefix string) *RedisManager {
	return &RedisManager{client: client, logger: logger, prefix: prefix}
}

// Acquire polls Redis with a growing backoff until the lock is taken, the wait
// timeout elapses or ctx is done.
func (m *RedisManager) Acquire(ctx context.Context, key string, opts Options) (*Handle, error) {
	if err := validate(key, opts); err != nil {
		return nil, err
	}

	h := newHandle(ctx, key, time.Now(), opts.LeaseTimeout)
	deadline := time.Now().Add(opts.WaitTimeout)
	lockKey := m.lockKey(key)
	leaseMS := opts.LeaseTimeout.Milliseconds()

	ticket := ""
	if opts.Fair {
		ticket = uuid.NewString()
		if err := m.enqueue(ctx, key, ticket, deadline, opts); err != nil {
			return nil, err
		}
		defer m.dequeue(context.WithoutCancel(ctx), key, ticket)
	}

	b := newBackoff()
	for {
		now := time.Now()

		var acquired bool
		var err error
		if opts.Fair {
			var res int64
			res, err = fairAcquireScript.Run(ctx, m.client,
				[]string{lockKey, m.queueKey(key), m.deadlineKey(key)},
				ticket, h.Token, leaseMS, now.UnixMilli(),
			).Int64()
			acquired = res == 1
		} else {
			acquired, err = m.client.SetNX(ctx, lockKey, h.Token, opts.LeaseTimeout).Result()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if acquired {
			h.LeaseExpiresAt = now.Add(opts.LeaseTimeout)
			return h, nil
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return nil, ErrNotAcquired
		}

		timer := time.NewTimer(b.Next(remaining))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// Release deletes the lock if h still holds it.
func (m *RedisManager) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}

	res, err := releaseScript.Run(ctx, m.client, []string{m.lockKey(h.Key)}, h.Token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", h.Key, err)
	}
	if res == 0 {
		m.logger.Warn("release ignored, caller is not the lock holder",
			slog.String("key", h.Key),
			slog.String("owner", h.Owner),
		)
	}
	return nil
}

func (m *RedisManager) enqueue(ctx context.Context, key, ticket string, deadline time.Time, opts Options) error {
	ttl := opts.WaitTimeout + opts.LeaseTimeout
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, m.queueKey(key), redis.Z{Score: float64(time.Now().UnixMicro()), Member: ticket})
		pipe.HSet(ctx, m.deadlineKey(key), ticket, deadline.Add(staleGrace).UnixMilli())
		pipe.PExpire(ctx, m.queueKey(key), ttl)
		pipe.PExpire(ctx, m.deadlineKey(key), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue for lock %s: %w", key, err)
	}
	return nil
}

func (m *RedisManager) dequeue(ctx context.Context, key, ticket string) {
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, m.queueKey(key), ticket)
		pipe.HDel(ctx, m.deadlineKey(key), ticket)
		return nil
	})
	if err != nil {
		m.logger.Warn("failed to leave lock queue", slog.String("key", key), slog.Any("error", err))
	}
}

func (m *RedisManager) lockKey(key string) string     { return m.prefix + "lock:" + key }
func (m *RedisManager) queueKey(key string) string    { return m.prefix + "queue:" + key }
func (m *RedisManager) deadlineKey(key string) string { return m.prefix + "deadline:" + key }
