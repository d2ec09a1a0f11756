package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/sajuwooju/sajuwooju/internal/metrics"
)

// MemoryStore is a process-local denylist. Entries are lost on restart and
// are not shared between replicas.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke denylists jti until expiresAt and prunes expired entries.
func (s *MemoryStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		metrics.RecordRevocation(BackendMemory, "revoke", ErrClosed)
		return ErrClosed
	}

	now := s.now()
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
		}
	}
	if now.Before(expiresAt) {
		s.entries[jti] = expiresAt
	}

	metrics.RecordRevocation(BackendMemory, "revoke", nil)
	return nil
}

// IsRevoked reports whether jti is denylisted and not yet expired.
func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}
	exp, ok := s.entries[jti]
	return ok && s.now().Before(exp), nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close releases the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
