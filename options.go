package esignatures

import (
	"log/slog"
	"time"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/metadata"
	"github.com/squideyes/esignatures/observability"
	"github.com/squideyes/esignatures/signature"
	"github.com/squideyes/esignatures/store"
)

// Option configures a Relay instance.
type Option func(*Relay) error

// WithStore sets the queue, blob and poison backend.
func WithStore(s store.Store) Option {
	return func(r *Relay) error {
		r.store = s
		return nil
	}
}

// WithBus sets the message bus normalized events are published to.
func WithBus(b delivery.Bus) Option {
	return func(r *Relay) error {
		r.bus = b
		return nil
	}
}

// WithSecret sets the shared secret providers must present on callbacks.
func WithSecret(secret string) Option {
	return func(r *Relay) error {
		if err := signature.CheckSecret(secret); err != nil {
			return err
		}
		r.secret = secret
		return nil
	}
}

// WithAdminSecret sets the Basic credential required by the poison queue
// and stats routes. Without it those routes accept the webhook secret.
func WithAdminSecret(secret string) Option {
	return func(r *Relay) error {
		if err := signature.CheckSecret(secret); err != nil {
			return err
		}
		r.adminSecret = secret
		return nil
	}
}

// WithSigningKey makes the relay sign every published envelope with key.
func WithSigningKey(key string) Option {
	return func(r *Relay) error {
		r.signingKey = key
		return nil
	}
}

// WithMetadataCodec sets the codec used to decode callback metadata.
func WithMetadataCodec(c metadata.Codec) Option {
	return func(r *Relay) error {
		r.codec = c
		return nil
	}
}

// WithLogger sets the structured logger for the Relay instance.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) error {
		r.logger = logger
		return nil
	}
}

// WithMetrics sets the Prometheus instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Relay) error {
		r.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(r *Relay) error {
		r.tracer = t
		return nil
	}
}

// WithConcurrency sets the number of relay worker goroutines.
func WithConcurrency(n int) Option {
	return func(r *Relay) error {
		r.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets how often the relay engine checks for visible messages.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) error {
		r.config.PollInterval = d
		return nil
	}
}

// WithBatchSize sets the maximum number of messages claimed per poll cycle.
func WithBatchSize(n int) Option {
	return func(r *Relay) error {
		r.config.BatchSize = n
		return nil
	}
}

// WithVisibilityTimeout sets how long a claimed message stays hidden.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(r *Relay) error {
		r.config.VisibilityTimeout = d
		return nil
	}
}

// WithMaxAttempts sets the number of relay attempts before poisoning.
func WithMaxAttempts(n int) Option {
	return func(r *Relay) error {
		r.config.MaxAttempts = n
		return nil
	}
}

// WithRetrySchedule sets the backoff intervals between relay attempts.
func WithRetrySchedule(schedule []time.Duration) Option {
	return func(r *Relay) error {
		r.config.RetrySchedule = schedule
		return nil
	}
}

// WithMessageTTL sets the time-to-live stamped on published envelopes.
func WithMessageTTL(d time.Duration) Option {
	return func(r *Relay) error {
		r.config.MessageTTL = d
		return nil
	}
}

// WithPublishRate throttles bus publishes to perSecond for each event kind,
// allowing bursts of up to burst.
func WithPublishRate(perSecond float64, burst int) Option {
	return func(r *Relay) error {
		r.config.PublishRate = perSecond
		r.config.PublishBurst = burst
		return nil
	}
}

// WithMaxBodyBytes caps the size of an inbound callback body.
func WithMaxBodyBytes(n int64) Option {
	return func(r *Relay) error {
		r.config.MaxBodyBytes = n
		return nil
	}
}

// WithShutdownTimeout sets the maximum time to wait for in-flight messages on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(r *Relay) error {
		r.config.ShutdownTimeout = d
		return nil
	}
}
