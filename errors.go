package esignatures

import (
	"errors"

	"github.com/squideyes/esignatures/dlq"
)

// Sentinel errors returned by Relay operations and the store backends.
var (
	// ErrNoStore is returned when a Relay is created without a store.
	ErrNoStore = errors.New("esignatures: store is required")

	// ErrNoBus is returned when a Relay is created without a message bus.
	ErrNoBus = errors.New("esignatures: bus is required")

	// ErrNoSecret is returned when a Relay is created without the shared
	// webhook secret.
	ErrNoSecret = errors.New("esignatures: webhook secret is required")

	// ErrStoreClosed is returned when a store operation is attempted after
	// the store is closed.
	ErrStoreClosed = errors.New("esignatures: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("esignatures: migration failed")

	// ErrMessageNotFound is returned when a queued message cannot be found.
	ErrMessageNotFound = errors.New("esignatures: message not found")

	// ErrPoisonNotFound is returned when a poison entry cannot be found.
	ErrPoisonNotFound = dlq.ErrNotFound

	// ErrBlobNotFound is returned when no blob is stored under a key.
	ErrBlobNotFound = errors.New("esignatures: blob not found")
)
