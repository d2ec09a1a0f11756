// Package revocation implements the optional token denylist consulted by
// the authentication gate.
//
// Revocation is off by default: logout only clears the session cookie and
// a copied token stays valid until it expires. When a backend is configured
// logout records the token's jti until the token's own expiry, after which
// the entry is dropped since the codec would reject the token anyway.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("revocation store is closed")

// Store is a denylist of token IDs.
type Store interface {
	// Revoke denylists jti until expiresAt. Already-expired tokens are
	// ignored.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	// IsRevoked reports whether jti is currently denylisted.
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	RedisAddr string
	// BadgerDir is the badger data directory. Empty means in-memory.
	BadgerDir string
}

// Open builds the configured store. BackendNone (or empty) returns a nil
// store and nil error: revocation disabled.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		s, err := OpenRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendBadger:
		s, err := OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown revocation backend %q", cfg.Backend)
	}
}

// Entry is the persisted form of a revocation.
type Entry struct {
	JTI       string    `json:"jti"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

const keyPrefix = "sajuwooju:revoked:"
