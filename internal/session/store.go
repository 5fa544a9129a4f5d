// Package session keeps the normalized statement of each browser session.
//
// A session is identified by a random UUID carried in a cookie. The table is
// stored when an upload succeeds, replaced by the next upload and dropped on
// reset, on a failed upload or when the session has been idle for its TTL.
package session

import (
	"context"
	"errors"

	"spendwise/internal/core"
)

// ErrNotFound is returned when a session has no table or has expired.
var ErrNotFound = errors.New("session not found")

// Store persists one table per session id. Implementations must be safe for
// concurrent use and must extend a session's expiry whenever it is loaded.
type Store interface {
	Load(ctx context.Context, id string) (*core.Table, error)
	Save(ctx context.Context, id string, table *core.Table) error
	Delete(ctx context.Context, id string) error
	// Sweep removes expired sessions and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
	// Count reports the number of stored sessions, including expired ones
	// not yet swept.
	Count(ctx context.Context) (int, error)
	Close() error
}
