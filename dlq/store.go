package dlq

import (
	"context"
	"time"

	"github.com/squideyes/esignatures/id"
)

// Store defines the persistence contract for poison entries.
type Store interface {
	// Push records a poisoned message.
	Push(ctx context.Context, entry *Entry) error

	// ListPoison returns poison entries, newest first, optionally filtered.
	ListPoison(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// GetPoison returns a poison entry by ID.
	GetPoison(ctx context.Context, psnID id.ID) (*Entry, error)

	// Replay enqueues the entry's payload as a fresh message and marks the
	// entry replayed.
	Replay(ctx context.Context, psnID id.ID) error

	// ReplayBulk replays every entry not yet replayed that failed within
	// [from, to].
	ReplayBulk(ctx context.Context, from, to time.Time) (int64, error)

	// Purge deletes entries that failed before the threshold.
	Purge(ctx context.Context, before time.Time) (int64, error)

	// CountPoison returns the total number of poison entries.
	CountPoison(ctx context.Context) (int64, error)
}
