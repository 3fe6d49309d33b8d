// Package conversation keeps the history of gateway conversations behind
// opaque handles so any server instance can continue a conversation.
package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// Turn is one user/assistant exchange.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Record is a stored conversation.
type Record struct {
	System string
	Model  string
	Turns  []Turn
}

// Window returns the last n turns, or all of them when n <= 0.
func (r Record) Window(n int) []Turn {
	if n <= 0 || len(r.Turns) <= n {
		return r.Turns
	}
	return r.Turns[len(r.Turns)-n:]
}

// Store persists conversation records. Get returns domain.ErrNotFound for
// unknown or expired handles.
type Store interface {
	Create(ctx domain.Context, system, model string) (string, error)
	Get(ctx domain.Context, handle string) (Record, error)
	Append(ctx domain.Context, handle string, t Turn) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*Record
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: map[string]*Record{}}
}

func (s *MemoryStore) Create(_ domain.Context, system, model string) (string, error) {
	h := uuid.NewString()
	s.mu.Lock()
	s.convs[h] = &Record{System: system, Model: model}
	s.mu.Unlock()
	return h, nil
}

func (s *MemoryStore) Get(_ domain.Context, handle string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.convs[handle]
	if !ok {
		return Record{}, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, handle)
	}
	out := *r
	out.Turns = append([]Turn(nil), r.Turns...)
	return out, nil
}

func (s *MemoryStore) Append(_ domain.Context, handle string, t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.convs[handle]
	if !ok {
		return fmt.Errorf("%w: conversation %s", domain.ErrNotFound, handle)
	}
	r.Turns = append(r.Turns, t)
	return nil
}

// RedisStore keeps each conversation as a hash (system, model) plus a list of
// JSON-encoded turns. Both keys share a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func metaKey(h string) string  { return "conv:" + h }
func turnsKey(h string) string { return "conv:" + h + ":turns" }

func (s *RedisStore) Create(ctx domain.Context, system, model string) (string, error) {
	h := uuid.NewString()
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, metaKey(h), "system", system, "model", model)
		p.Expire(ctx, metaKey(h), s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("op=conversation.create: %w", err)
	}
	return h, nil
}

func (s *RedisStore) Get(ctx domain.Context, handle string) (Record, error) {
	var meta *redis.MapStringStringCmd
	var turns *redis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		meta = p.HGetAll(ctx, metaKey(handle))
		turns = p.LRange(ctx, turnsKey(handle), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("op=conversation.get: %w", err)
	}
	m := meta.Val()
	if len(m) == 0 {
		return Record{}, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, handle)
	}
	rec := Record{System: m["system"], Model: m["model"]}
	for _, raw := range turns.Val() {
		var t Turn
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return Record{}, fmt.Errorf("op=conversation.get: decode turn: %w", err)
		}
		rec.Turns = append(rec.Turns, t)
	}
	return rec, nil
}

func (s *RedisStore) Append(ctx domain.Context, handle string, t Turn) error {
	n, err := s.rdb.Exists(ctx, metaKey(handle)).Result()
	if err != nil {
		return fmt.Errorf("op=conversation.append: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: conversation %s", domain.ErrNotFound, handle)
	}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("op=conversation.append: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, turnsKey(handle), b)
		p.Expire(ctx, turnsKey(handle), s.ttl)
		p.Expire(ctx, metaKey(handle), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("op=conversation.append: %w", err)
	}
	return nil
}
