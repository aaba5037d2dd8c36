package dlq

import (
	"encoding/json"
	"time"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/id"
	"github.com/squideyes/esignatures/internal/entity"
)

// Entry is a callback that could not be relayed, kept for inspection and
// replay.
type Entry struct {
	entity.Entity

	// ID is the unique TypeID for this poison entry.
	ID id.ID `json:"id"`

	// MessageID references the queue message that failed.
	MessageID id.ID `json:"message_id"`

	// Payload is the callback body exactly as received.
	Payload json.RawMessage `json:"payload"`

	// Reason tells parse failures from delivery failures.
	Reason delivery.FailureReason `json:"reason"`

	// Error is the error from the final attempt.
	Error string `json:"error"`

	// Attempts is the number of relay attempts made.
	Attempts int `json:"attempts"`

	// ReceivedAt is when the callback originally arrived.
	ReceivedAt time.Time `json:"received_at"`

	// FailedAt is when the message was poisoned.
	FailedAt time.Time `json:"failed_at"`

	// ReplayedAt is set when the entry has been replayed.
	ReplayedAt *time.Time `json:"replayed_at,omitempty"`
}

// ListOpts configures filtering and pagination for poison listing.
type ListOpts struct {
	Offset int
	Limit  int
	Reason delivery.FailureReason
	From   *time.Time
	To     *time.Time
}

// Match reports whether e passes the filters in opts. Pagination is not
// considered.
func (o ListOpts) Match(e *Entry) bool {
	if o.Reason != "" && e.Reason != o.Reason {
		return false
	}
	if o.From != nil && e.FailedAt.Before(*o.From) {
		return false
	}
	if o.To != nil && e.FailedAt.After(*o.To) {
		return false
	}
	return true
}
