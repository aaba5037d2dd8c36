// Package memory provides an in-memory Bus that records published envelopes.
// It is meant for tests and for running the relay without a broker.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/squideyes/esignatures/delivery"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("esignatures/bus/memory: bus is closed")

// compile-time interface check.
var _ delivery.Bus = (*Bus)(nil)

// Bus records every published envelope in order.
type Bus struct {
	mu        sync.Mutex
	envelopes []*delivery.Envelope
	failures  int
	failErr   error
	closed    bool
	notify    chan struct{}
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{notify: make(chan struct{}, 1)}
}

// Publish records env, or fails if a failure was scheduled with FailNext.
func (b *Bus) Publish(ctx context.Context, env *delivery.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.failures > 0 {
		b.failures--
		return b.failErr
	}

	cp := *env
	b.envelopes = append(b.envelopes, &cp)

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// FailNext makes the next n publishes return err.
func (b *Bus) FailNext(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = n
	b.failErr = err
}

// Envelopes returns the envelopes published so far.
func (b *Bus) Envelopes() []*delivery.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*delivery.Envelope, len(b.envelopes))
	copy(out, b.envelopes)
	return out
}

// Len returns the number of envelopes published so far.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.envelopes)
}

// Published is signalled after each successful publish. Signals coalesce.
func (b *Bus) Published() <-chan struct{} { return b.notify }

// Close stops the bus from accepting envelopes.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
