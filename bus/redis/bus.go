// Package redis publishes relayed envelopes to a Redis stream.
//
// Each envelope becomes one stream entry whose fields are id, subject,
// correlation_id, content_type, body and expires_at, plus one prop:<name>
// field per envelope property. The stream is trimmed approximately to a
// maximum length so it cannot grow without bound.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/squideyes/esignatures/delivery"
)

// DefaultStream is the stream used when none is configured.
const DefaultStream = "esignatures:events"

// DefaultMaxLen is the approximate stream length kept by default.
const DefaultMaxLen = 100_000

// Stream field names.
const (
	FieldID            = "id"
	FieldSubject       = "subject"
	FieldCorrelationID = "correlation_id"
	FieldContentType   = "content_type"
	FieldBody          = "body"
	FieldExpiresAt     = "expires_at"
	PropPrefix         = "prop:"
)

// compile-time interface check
var _ delivery.Bus = (*Bus)(nil)

// Bus is a delivery.Bus backed by a Redis stream.
type Bus struct {
	rdb    goredis.UniversalClient
	stream string
	maxLen int64
}

// Option configures a Bus.
type Option func(*Bus)

// WithStream sets the stream key.
func WithStream(stream string) Option {
	return func(b *Bus) { b.stream = stream }
}

// WithMaxLen sets the approximate maximum stream length. Zero disables
// trimming.
func WithMaxLen(n int64) Option {
	return func(b *Bus) { b.maxLen = n }
}

// New creates a Bus publishing through rdb. The caller owns rdb.
func New(rdb goredis.UniversalClient, opts ...Option) *Bus {
	b := &Bus{
		rdb:    rdb,
		stream: DefaultStream,
		maxLen: DefaultMaxLen,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Stream returns the stream key envelopes are appended to.
func (b *Bus) Stream() string { return b.stream }

// Publish appends env to the stream.
func (b *Bus) Publish(ctx context.Context, env *delivery.Envelope) error {
	args := &goredis.XAddArgs{
		Stream: b.stream,
		Values: fields(env),
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}

	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("esignatures/bus/redis: xadd %s: %w", b.stream, err)
	}
	return nil
}

// Close is a no-op; the Redis client is closed by its owner.
func (b *Bus) Close() error { return nil }

func fields(env *delivery.Envelope) map[string]any {
	values := make(map[string]any, 6+len(env.Properties))
	values[FieldID] = env.MessageID
	values[FieldSubject] = env.Subject
	values[FieldCorrelationID] = env.CorrelationID
	values[FieldContentType] = env.ContentType
	values[FieldBody] = string(env.Body)

	expires := ""
	if at := env.ExpiresAt(); !at.IsZero() {
		expires = at.UTC().Format(time.RFC3339Nano)
	}
	values[FieldExpiresAt] = expires

	for k, v := range env.Properties {
		values[PropPrefix+k] = v
	}
	return values
}
