package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/sajuwooju/sajuwooju/internal/metrics"
)

// BadgerStore keeps revocations in an embedded BadgerDB. Entries carry a
// badger TTL so compaction drops them after the token expires.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// OpenBadger opens (or creates) a badger database in dir. An empty dir
// gives an in-memory database.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("revocation: open badger: %w", err)
	}
	s := NewBadgerStore(db)
	s.ownsDB = true
	return s, nil
}

// NewBadgerStore wraps a database shared with other components. Close does
// not close a shared database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

func badgerKey(jti string) []byte {
	return []byte(keyPrefix + jti)
}

// Revoke stores a JSON entry for jti with a TTL matching the token expiry.
func (s *BadgerStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	now := s.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(Entry{JTI: jti, RevokedAt: now, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("revocation: encode entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(badgerKey(jti), data).WithTTL(ttl))
	})
	metrics.RecordRevocation(BackendBadger, "revoke", err)
	if err != nil {
		return fmt.Errorf("revocation: badger update: %w", err)
	}
	return nil
}

// IsRevoked reports whether an unexpired entry exists for jti.
func (s *BadgerStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}

	var revoked bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			// Badger TTLs have second granularity; the entry's own expiry
			// is authoritative.
			revoked = s.now().Before(e.ExpiresAt)
			return nil
		})
	})
	if err != nil {
		metrics.RecordRevocation(BackendBadger, "check", err)
		return false, fmt.Errorf("revocation: badger view: %w", err)
	}
	return revoked, nil
}

// Close closes the database when the store opened it.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
