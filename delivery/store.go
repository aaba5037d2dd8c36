package delivery

import (
	"context"
	"time"

	"github.com/squideyes/esignatures/id"
)

// Queue is the persistence contract for received callbacks.
type Queue interface {
	// Enqueue stores a new message.
	Enqueue(ctx context.Context, m *Message) error

	// Dequeue claims up to limit messages whose VisibleAt has passed. Each
	// claimed message has Attempts incremented, State set to in-flight and
	// VisibleAt pushed to now+visibility. Implementations must not hand the
	// same message to two callers while a claim is live.
	Dequeue(ctx context.Context, limit int, visibility time.Duration) ([]*Message, error)

	// Ack removes a relayed message.
	Ack(ctx context.Context, msgID id.ID) error

	// Release returns a claimed message to the queue, visible again at at.
	Release(ctx context.Context, msgID id.ID, at time.Time, lastError string) error

	// GetMessage returns a message by ID.
	GetMessage(ctx context.Context, msgID id.ID) (*Message, error)

	// CountPending returns the number of messages not yet acknowledged.
	CountPending(ctx context.Context) (int64, error)
}

// BlobStore archives raw payloads by key.
type BlobStore interface {
	// PutBlob stores data under key, replacing any previous value.
	PutBlob(ctx context.Context, key string, data []byte) error

	// GetBlob returns the data stored under key.
	GetBlob(ctx context.Context, key string) ([]byte, error)
}
