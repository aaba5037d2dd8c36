// Package memory provides an in-memory Store implementation for unit testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/id"
	esigstore "github.com/squideyes/esignatures/store"
)

// compile-time interface check.
var _ esigstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	messages map[string]*delivery.Message // keyed by ID string
	blobs    map[string][]byte            // keyed by blob key
	poison   map[string]*dlq.Entry        // keyed by ID string

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		messages: make(map[string]*delivery.Message),
		blobs:    make(map[string][]byte),
		poison:   make(map[string]*dlq.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return esignatures.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// delivery.Queue
// ──────────────────────────────────────────────────

// Enqueue stores a copy of the message.
func (s *Store) Enqueue(_ context.Context, m *delivery.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return esignatures.ErrStoreClosed
	}
	s.messages[m.ID.String()] = copyMessage(m)
	return nil
}

// copyMessage returns a shallow copy of the message.
func copyMessage(m *delivery.Message) *delivery.Message {
	cp := *m
	return &cp
}

// Dequeue claims visible messages, oldest VisibleAt first.
// Returns copies so callers can mutate without holding a lock.
func (s *Store) Dequeue(_ context.Context, limit int, visibility time.Duration) ([]*delivery.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, esignatures.ErrStoreClosed
	}

	now := time.Now().UTC()
	candidates := make([]*delivery.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.VisibleAt.After(now) {
			continue
		}
		candidates = append(candidates, m)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].VisibleAt.Before(candidates[j].VisibleAt)
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	result := make([]*delivery.Message, 0, len(candidates))
	for _, m := range candidates {
		m.Attempts++
		m.State = delivery.StateInFlight
		m.VisibleAt = now.Add(visibility)
		m.UpdatedAt = now
		result = append(result, copyMessage(m))
	}
	return result, nil
}

// Ack deletes a message.
func (s *Store) Ack(_ context.Context, msgID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[msgID.String()]; !ok {
		return esignatures.ErrMessageNotFound
	}
	delete(s.messages, msgID.String())
	return nil
}

// Release makes a message visible again at the given time.
func (s *Store) Release(_ context.Context, msgID id.ID, at time.Time, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[msgID.String()]
	if !ok {
		return esignatures.ErrMessageNotFound
	}
	m.State = delivery.StatePending
	m.VisibleAt = at.UTC()
	m.LastError = lastError
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// GetMessage returns a copy of the message by ID.
func (s *Store) GetMessage(_ context.Context, msgID id.ID) (*delivery.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[msgID.String()]
	if !ok {
		return nil, esignatures.ErrMessageNotFound
	}
	return copyMessage(m), nil
}

// CountPending returns the number of messages not yet acknowledged.
func (s *Store) CountPending(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.messages)), nil
}

// ──────────────────────────────────────────────────
// delivery.BlobStore
// ──────────────────────────────────────────────────

// PutBlob stores a copy of data under key.
func (s *Store) PutBlob(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return esignatures.ErrStoreClosed
	}
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// GetBlob returns a copy of the data stored under key.
func (s *Store) GetBlob(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, esignatures.ErrBlobNotFound
	}
	return append([]byte(nil), b...), nil
}

// ──────────────────────────────────────────────────
// dlq.Store
// ──────────────────────────────────────────────────

// Push records a poisoned message.
func (s *Store) Push(_ context.Context, entry *dlq.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.poison[entry.ID.String()] = &cp
	return nil
}

// ListPoison returns poison entries, newest first.
func (s *Store) ListPoison(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*dlq.Entry, 0, len(s.poison))
	for _, e := range s.poison {
		if !opts.Match(e) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FailedAt.After(result[j].FailedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// GetPoison returns a poison entry by ID.
func (s *Store) GetPoison(_ context.Context, psnID id.ID) (*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.poison[psnID.String()]
	if !ok {
		return nil, esignatures.ErrPoisonNotFound
	}
	cp := *e
	return &cp, nil
}

// Replay marks an entry replayed and enqueues its payload as a new message.
func (s *Store) Replay(_ context.Context, psnID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.poison[psnID.String()]
	if !ok {
		return esignatures.ErrPoisonNotFound
	}
	s.replayLocked(e, time.Now().UTC())
	return nil
}

// ReplayBulk replays every entry not yet replayed within the window.
func (s *Store) ReplayBulk(_ context.Context, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var count int64
	for _, e := range s.poison {
		if e.FailedAt.Before(from) || e.FailedAt.After(to) {
			continue
		}
		if e.ReplayedAt != nil {
			continue
		}
		s.replayLocked(e, now)
		count++
	}
	return count, nil
}

func (s *Store) replayLocked(e *dlq.Entry, now time.Time) {
	e.ReplayedAt = &now
	e.UpdatedAt = now

	m := delivery.NewMessage(e.Payload)
	m.ReceivedAt = e.ReceivedAt
	s.messages[m.ID.String()] = m
}

// Purge deletes entries that failed before the threshold.
func (s *Store) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for k, e := range s.poison {
		if e.FailedAt.Before(before) {
			delete(s.poison, k)
			count++
		}
	}
	return count, nil
}

// CountPoison returns the total number of poison entries.
func (s *Store) CountPoison(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.poison)), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
