package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps contexts in Redis as JSON. Keys expire after the session timeout,
// so Reap has nothing to do.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to addr. An empty keyPrefix defaults to "hal:session:".
func NewRedisStore(addr, password string, db int, keyPrefix string, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if keyPrefix == "" {
		keyPrefix = "hal:session:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Context, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is empty", ErrInvalidSession)
	}
	data, err := s.client.Get(ctx, s.keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Context) error {
	if c == nil || c.SessionID == "" {
		return ErrInvalidSession
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keyPrefix+c.SessionID, data, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is empty", ErrInvalidSession)
	}
	return s.client.Del(ctx, s.keyPrefix+sessionID).Err()
}

func (s *RedisStore) Reap(context.Context, time.Time) (int, error) { return 0, nil }

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
