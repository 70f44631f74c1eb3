package thread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/troupehq/troupe/troupe"
)

// RedisStore keeps threads in Redis so multiple server instances share
// conversation state.
//
// Redis data layout:
//   - "{prefix}:thread:{thread_id}" holds the JSON-encoded thread
//   - "{prefix}:active:{user_id}" points at the user's active thread and
//     expires after the idle window, which is what retires stale threads
//
// Example:
//
//	store, err := thread.NewRedisStore("redis://localhost:6379", thread.RedisConfig{})
//	t, err := store.GetOrCreateActive(ctx, "user-123")
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	idleWindow time.Duration
	ttl        time.Duration
}

// RedisConfig tunes the Redis store.
type RedisConfig struct {
	// KeyPrefix namespaces all keys (default "troupe").
	KeyPrefix string

	// IdleWindow retires inactive threads (default DefaultIdleWindow).
	IdleWindow time.Duration

	// TTL expires stored threads entirely; 0 keeps them forever.
	TTL time.Duration
}

// NewRedisStore connects to Redis by URL.
func NewRedisStore(redisURL string, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "troupe"
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = DefaultIdleWindow
	}
	return &RedisStore{
		client:     redis.NewClient(opts),
		keyPrefix:  cfg.KeyPrefix,
		idleWindow: cfg.IdleWindow,
		ttl:        cfg.TTL,
	}, nil
}

func (s *RedisStore) threadKey(threadID string) string {
	return fmt.Sprintf("%s:thread:%s", s.keyPrefix, threadID)
}

func (s *RedisStore) activeKey(userID string) string {
	return fmt.Sprintf("%s:active:%s", s.keyPrefix, userID)
}

// GetOrCreateActive returns the user's active thread or starts a new one.
func (s *RedisStore) GetOrCreateActive(ctx context.Context, userID string) (*Thread, error) {
	id, err := s.client.Get(ctx, s.activeKey(userID)).Result()
	if err == nil {
		t, err := s.Get(ctx, id)
		if err == nil && !t.Closed {
			return t, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to look up active thread: %w", err)
	}

	t := New(userID)
	if err := s.persist(ctx, t); err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.activeKey(userID), t.ID, s.idleWindow).Err(); err != nil {
		return nil, fmt.Errorf("failed to set active thread: %w", err)
	}
	return t, nil
}

// Get returns a thread by ID.
func (s *RedisStore) Get(ctx context.Context, threadID string) (*Thread, error) {
	data, err := s.client.Get(ctx, s.threadKey(threadID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}

	var t Thread
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("failed to decode thread: %w", err)
	}
	return &t, nil
}

// Append adds messages and refreshes the activity window.
func (s *RedisStore) Append(ctx context.Context, threadID string, messages ...troupe.Message) error {
	t, err := s.Get(ctx, threadID)
	if err != nil {
		return err
	}
	t.Messages = append(t.Messages, messages...)
	t.UpdatedAt = time.Now().UTC()
	if err := s.persist(ctx, t); err != nil {
		return err
	}
	// Refresh the active pointer's idle window.
	return s.client.Expire(ctx, s.activeKey(t.UserID), s.idleWindow).Err()
}

// Close marks the thread finished and drops the active pointer.
func (s *RedisStore) Close(ctx context.Context, threadID string) error {
	t, err := s.Get(ctx, threadID)
	if err != nil {
		return err
	}
	t.Closed = true
	if err := s.persist(ctx, t); err != nil {
		return err
	}
	return s.client.Del(ctx, s.activeKey(t.UserID)).Err()
}

func (s *RedisStore) persist(ctx context.Context, t *Thread) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode thread: %w", err)
	}
	if err := s.client.Set(ctx, s.threadKey(t.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store thread: %w", err)
	}
	return nil
}
