package esignatures

import "time"

// Config holds the configuration for a Relay instance.
type Config struct {
	// Concurrency is the number of relay worker goroutines.
	Concurrency int

	// PollInterval is how often the relay engine checks for visible messages.
	PollInterval time.Duration

	// BatchSize is the maximum number of messages claimed per poll cycle.
	BatchSize int

	// VisibilityTimeout is how long a claimed message stays hidden from
	// other workers before it is redelivered.
	VisibilityTimeout time.Duration

	// MaxAttempts is the number of relay attempts before a message is
	// poisoned.
	MaxAttempts int

	// RetrySchedule defines the backoff intervals between relay attempts.
	RetrySchedule []time.Duration

	// MessageTTL is the time-to-live stamped on every published envelope.
	// Zero means envelopes never expire.
	MessageTTL time.Duration

	// PublishRate caps bus publishes per second for each event kind. Zero
	// means unlimited.
	PublishRate float64

	// PublishBurst is the number of publishes allowed at once per kind.
	PublishBurst int

	// MaxBodyBytes caps the size of an inbound callback body.
	MaxBodyBytes int64

	// ShutdownTimeout is the maximum time to wait for in-flight messages on
	// shutdown.
	ShutdownTimeout time.Duration
}

// DefaultRetrySchedule defines the default backoff intervals.
var DefaultRetrySchedule = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	15 * time.Minute,
	2 * time.Hour,
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       10,
		PollInterval:      1 * time.Second,
		BatchSize:         50,
		VisibilityTimeout: 30 * time.Second,
		MaxAttempts:       6,
		RetrySchedule:     DefaultRetrySchedule,
		MessageTTL:        48 * time.Hour,
		PublishBurst:      10,
		MaxBodyBytes:      5 << 20,
		ShutdownTimeout:   30 * time.Second,
	}
}
