// Package backend selects and builds the session store configured for the
// application.
package backend

import (
	"context"
	"time"

	"spendwise/internal/session"
)

// CleanupFunc releases resources held by a store
type CleanupFunc func() error

// Result contains the store instance and its cleanup function
type Result struct {
	Store   session.Store
	Cleanup CleanupFunc
}

// Factory creates session stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for store creation
type Config struct {
	Type BackendType

	// Shared
	TTL time.Duration

	// Memory specific
	MaxEntries int

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the kind of session store
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is known
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
