package cache

import "time"

// Cache defines a generic keyed cache
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries on demand
type Cleaner interface {
	CleanExpired() int
}

// Options configures an LRU cache
type Options struct {
	// MaxEntries bounds the cache; the least recently used entry is evicted first
	MaxEntries int
	// TTL is how long an entry lives after it was last written
	TTL time.Duration
	// Sliding extends an entry's lifetime on every successful Get
	Sliding bool
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}
