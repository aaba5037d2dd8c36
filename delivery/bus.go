package delivery

import (
	"context"
	"strconv"
	"time"

	"github.com/squideyes/esignatures/id"
	"github.com/squideyes/esignatures/signature"
	"github.com/squideyes/esignatures/webhook"
)

// Envelope property names.
const (
	PropContractID  = "ContractId"
	PropWebHookKind = "WebHookKind"
	PropSignature   = "Signature"
	PropSignedAt    = "SignedAt"
)

// ContentTypeJSON is the content type of every relayed body.
const ContentTypeJSON = "application/json"

// Envelope is one message published on the bus.
type Envelope struct {
	MessageID     string            `json:"message_id"`
	Subject       string            `json:"subject"`
	CorrelationID string            `json:"correlation_id"`
	ContentType   string            `json:"content_type"`
	Body          []byte            `json:"body"`
	Properties    map[string]string `json:"properties"`
	TTL           time.Duration     `json:"ttl"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewEnvelope builds the envelope relaying ev. The message ID is the queue
// message ID, so a redelivered message keeps its bus identity.
func NewEnvelope(msgID id.ID, ev webhook.Event, body []byte, ttl time.Duration) *Envelope {
	contractID := ev.ContractID().String()
	return &Envelope{
		MessageID:     msgID.String(),
		Subject:       webhook.Subject(ev),
		CorrelationID: contractID,
		ContentType:   ContentTypeJSON,
		Body:          body,
		Properties: map[string]string{
			PropContractID:  contractID,
			PropWebHookKind: ev.Kind().String(),
		},
		TTL:       ttl,
		CreatedAt: time.Now().UTC(),
	}
}

// ExpiresAt returns when the envelope stops being useful, or the zero time
// when it has no TTL.
func (e *Envelope) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(e.TTL)
}

// Sign attaches an HMAC signature of the body so consumers can check the
// envelope came from this relay.
func (e *Envelope) Sign(key string, at time.Time) {
	ts := at.Unix()
	if e.Properties == nil {
		e.Properties = make(map[string]string, 2)
	}
	e.Properties[PropSignature] = signature.SignMessage(e.Body, key, ts)
	e.Properties[PropSignedAt] = strconv.FormatInt(ts, 10)
}

// Bus publishes envelopes to downstream consumers.
type Bus interface {
	Publish(ctx context.Context, env *Envelope) error
	Close() error
}
