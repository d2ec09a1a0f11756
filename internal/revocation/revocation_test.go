package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs the behavior every backend must share.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "unknown jti must not be revoked")

	require.NoError(t, s.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked, "revocation must be per jti")

	// Already-expired tokens are not stored.
	require.NoError(t, s.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)))
	revoked, err = s.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Close())
	_, err = s.IsRevoked(ctx, "jti-1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Revoke(ctx, "jti-3", time.Now().Add(time.Hour)), ErrClosed)
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestMemoryStoreExpiresAndPrunes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Revoke(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, s.Revoke(ctx, "b", now.Add(2*time.Hour)))

	now = now.Add(90 * time.Minute)
	revoked, _ := s.IsRevoked(ctx, "a")
	assert.False(t, revoked, "entry must lapse at token expiry")
	revoked, _ = s.IsRevoked(ctx, "b")
	assert.True(t, revoked)

	require.NoError(t, s.Revoke(ctx, "c", now.Add(time.Hour)))
	assert.Equal(t, 2, s.Len(), "expired entry should be pruned on write")
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	exercise(t, NewRedisStore(client))
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer s.Close()

	require.NoError(t, s.Revoke(ctx, "jti-ttl", time.Now().Add(24*time.Hour)))

	ttl := mr.TTL(keyPrefix + "jti-ttl")
	assert.Greater(t, ttl, 23*time.Hour)
	assert.LessOrEqual(t, ttl, 24*time.Hour+time.Second)

	mr.FastForward(25 * time.Hour)
	revoked, err := s.IsRevoked(ctx, "jti-ttl")
	require.NoError(t, err)
	assert.False(t, revoked, "key must expire with the token")
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer s.Close()
	mr.Close()

	_, err := s.IsRevoked(context.Background(), "jti-1")
	assert.Error(t, err)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := OpenRedis(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer s.Close()

	_, err = OpenRedis(context.Background(), "")
	assert.Error(t, err)
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadger("")
	require.NoError(t, err)
	exercise(t, s)
}

func TestBadgerStoreEntryExpiry(t *testing.T) {
	ctx := context.Background()
	s, err := OpenBadger("")
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Revoke(ctx, "jti-1", now.Add(time.Hour)))

	now = now.Add(2 * time.Hour)
	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBadgerStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, s.Close())

	s2, err := OpenBadger(dir)
	require.NoError(t, err)
	defer s2.Close()

	revoked, err := s2.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked, "revocation must survive restart")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, Config{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	s.Close()

	s, err = Open(ctx, Config{Backend: BackendBadger})
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)
	s.Close()

	_, err = Open(ctx, Config{Backend: "etcd"})
	assert.Error(t, err)
}
