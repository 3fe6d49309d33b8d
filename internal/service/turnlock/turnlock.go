// Package turnlock serialises turns on one interview session. A second
// caller never waits: it fails fast with domain.ErrTurnInFlight.
package turnlock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

const releaseTimeout = 2 * time.Second

// RedisLocker holds the lock as a Redis key with a TTL so a crashed holder
// cannot block the session forever.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func key(sessionID string) string { return "turnlock:" + sessionID }

// Acquire implements domain.TurnLocker.
func (l *RedisLocker) Acquire(ctx domain.Context, sessionID string) (func(), error) {
	token := uuid.NewString()
	k := key(sessionID)
	ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("op=turnlock.acquire: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("op=turnlock.acquire: %w", domain.ErrTurnInFlight)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{k}, token).Err(); err != nil {
				slog.Warn("turn lock release failed", slog.String("session_id", sessionID), slog.Any("error", err))
			}
		})
	}, nil
}

// MemoryLocker is the in-process locker for single-instance deployments and tests.
type MemoryLocker struct {
	mu     sync.Mutex
	locked map[string]struct{}
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locked: map[string]struct{}{}}
}

// Acquire implements domain.TurnLocker.
func (l *MemoryLocker) Acquire(_ domain.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.locked[sessionID]; busy {
		return nil, fmt.Errorf("op=turnlock.acquire: %w", domain.ErrTurnInFlight)
	}
	l.locked[sessionID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.locked, sessionID)
			l.mu.Unlock()
		})
	}, nil
}
