package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sajuwooju/sajuwooju/internal/metrics"
)

// RedisStore keeps revocations in Redis with SET ... EX, so entries are
// shared across replicas and expire on their own.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
	closed atomic.Bool
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("revocation: redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("revocation: redis ping: %w", err)
	}
	return NewRedisStore(client), nil
}

// NewRedisStore wraps an existing client. The store owns the client and
// closes it on Close.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Revoke sets the jti key with a TTL equal to the token's remaining life.
func (s *RedisStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	// EX has second granularity; round up so the key never expires
	// before the token does.
	ttl = ttl.Truncate(time.Second) + time.Second

	err := s.client.Set(ctx, keyPrefix+jti, expiresAt.Unix(), ttl).Err()
	metrics.RecordRevocation(BackendRedis, "revoke", err)
	if err != nil {
		return fmt.Errorf("revocation: redis set: %w", err)
	}
	return nil
}

// IsRevoked reports whether the jti key exists.
func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	n, err := s.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		metrics.RecordRevocation(BackendRedis, "check", err)
		return false, fmt.Errorf("revocation: redis exists: %w", err)
	}
	return n > 0, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}
