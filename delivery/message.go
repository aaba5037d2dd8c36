package delivery

import (
	"encoding/json"
	"time"

	"github.com/squideyes/esignatures/id"
	"github.com/squideyes/esignatures/internal/entity"
)

// State is the queue state of a message.
type State string

const (
	// StatePending indicates the message is waiting to be claimed.
	StatePending State = "pending"

	// StateInFlight indicates a worker has claimed the message and its
	// claim has not yet expired.
	StateInFlight State = "in_flight"
)

// Message is one raw callback body awaiting relay.
type Message struct {
	entity.Entity

	// ID is the unique TypeID for this message.
	ID id.ID `json:"id"`

	// Payload is the callback body exactly as received.
	Payload json.RawMessage `json:"payload"`

	// State is the current queue state.
	State State `json:"state"`

	// Attempts counts claims, including the current one.
	Attempts int `json:"attempts"`

	// VisibleAt is the earliest time the message may be claimed.
	VisibleAt time.Time `json:"visible_at"`

	// LastError is the error from the most recent failed relay attempt.
	LastError string `json:"last_error,omitempty"`

	// ReceivedAt is when the callback arrived.
	ReceivedAt time.Time `json:"received_at"`
}

// NewMessage returns a pending message for payload, visible immediately.
func NewMessage(payload []byte) *Message {
	now := time.Now().UTC()
	return &Message{
		Entity:     entity.New(),
		ID:         id.NewMessageID(),
		Payload:    append(json.RawMessage(nil), payload...),
		State:      StatePending,
		VisibleAt:  now,
		ReceivedAt: now,
	}
}

// FailureReason records why a message was poisoned.
type FailureReason string

const (
	// ReasonParse means the payload could not be parsed.
	ReasonParse FailureReason = "parse"

	// ReasonDelivery means archiving or publishing kept failing.
	ReasonDelivery FailureReason = "delivery"
)
