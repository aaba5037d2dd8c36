package delivery

import "time"

// Decision is the outcome of evaluating a failed relay attempt.
type Decision int

const (
	// Redeliver means the message should be released for another attempt.
	Redeliver Decision = iota

	// Poison means the message has used its attempts and should be moved
	// to the poison store.
	Poison
)

// Retrier decides what to do after a failed relay attempt.
type Retrier struct {
	schedule    []time.Duration
	maxAttempts int
}

// NewRetrier creates a retrier with the given backoff schedule and attempt
// limit. A limit below one is treated as one.
func NewRetrier(schedule []time.Duration, maxAttempts int) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrier{schedule: schedule, maxAttempts: maxAttempts}
}

// Decide returns Redeliver while the message has attempts remaining.
func (r *Retrier) Decide(m *Message) Decision {
	if m.Attempts < r.maxAttempts {
		return Redeliver
	}
	return Poison
}

// ComputeNextAttempt returns when the message should become visible again
// after attemptCount failed attempts.
func (r *Retrier) ComputeNextAttempt(attemptCount int) time.Time {
	now := time.Now().UTC()
	if len(r.schedule) == 0 {
		return now
	}
	idx := attemptCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.schedule) {
		idx = len(r.schedule) - 1
	}
	return now.Add(r.schedule[idx])
}
