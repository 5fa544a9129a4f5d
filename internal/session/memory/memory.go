// Package memory provides an in-process session store backed by the LRU cache.
package memory

import (
	"context"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/session"
)

// Store keeps tables in a sliding-TTL LRU cache. When the cache is full the
// least recently used session is evicted.
type Store struct {
	tables *cache.LRUCache[*core.Table]
}

var _ session.Store = (*Store)(nil)

// New creates a store holding at most maxEntries sessions for ttl of idle time.
func New(maxEntries int, ttl time.Duration) *Store {
	return NewWithOptions(cache.Options{MaxEntries: maxEntries, TTL: ttl})
}

// NewWithOptions creates a store from explicit cache options. Sliding expiry
// is always enabled.
func NewWithOptions(opts cache.Options) *Store {
	opts.Sliding = true
	return &Store{tables: cache.New[*core.Table](opts)}
}

func (s *Store) Load(_ context.Context, id string) (*core.Table, error) {
	table, ok := s.tables.Get(id)
	if !ok {
		return nil, session.ErrNotFound
	}
	return table, nil
}

func (s *Store) Save(_ context.Context, id string, table *core.Table) error {
	s.tables.Set(id, table)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.tables.Delete(id)
	return nil
}

func (s *Store) Sweep(_ context.Context) (int, error) {
	return s.tables.CleanExpired(), nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	return s.tables.Size(), nil
}

func (s *Store) Close() error { return nil }
