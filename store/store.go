// Package store defines the composite Store interface for queue, archive
// and poison persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them, so a single backend serves the receive side, the relay
// engine and the poison admin routes.
package store

import (
	"context"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
)

// Store is the aggregate persistence interface.
type Store interface {
	delivery.Queue
	delivery.BlobStore
	dlq.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
