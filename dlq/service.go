// Package dlq keeps webhook callbacks that could not be relayed so an
// operator can inspect, replay or purge them.
package dlq

import (
	"context"
	"log/slog"
	"time"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/id"
	"github.com/squideyes/esignatures/internal/entity"
)

// compile-time interface check.
var _ delivery.PoisonPusher = (*Service)(nil)

// Service manages poison entries.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new poison service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// PushPoison creates a poison entry from a message. Implements
// delivery.PoisonPusher.
func (svc *Service) PushPoison(ctx context.Context, m *delivery.Message, reason delivery.FailureReason, cause error) error {
	var msg string
	if cause != nil {
		msg = cause.Error()
	}

	entry := &Entry{
		Entity:     entity.New(),
		ID:         id.NewPoisonID(),
		MessageID:  m.ID,
		Payload:    m.Payload,
		Reason:     reason,
		Error:      msg,
		Attempts:   m.Attempts,
		ReceivedAt: m.ReceivedAt,
		FailedAt:   time.Now().UTC(),
	}

	if err := svc.store.Push(ctx, entry); err != nil {
		return err
	}
	svc.logger.WarnContext(ctx, "message poisoned",
		"poison_id", entry.ID, "message_id", m.ID, "reason", reason, "error", msg)
	return nil
}

// List returns poison entries matching the given options.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	return svc.store.ListPoison(ctx, opts)
}

// Get returns a poison entry by ID.
func (svc *Service) Get(ctx context.Context, psnID id.ID) (*Entry, error) {
	return svc.store.GetPoison(ctx, psnID)
}

// Replay re-enqueues a single poison entry.
func (svc *Service) Replay(ctx context.Context, psnID id.ID) error {
	if err := svc.store.Replay(ctx, psnID); err != nil {
		return err
	}
	svc.logger.InfoContext(ctx, "poison entry replayed", "poison_id", psnID)
	return nil
}

// ReplayBulk re-enqueues all poison entries within a time range.
func (svc *Service) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	n, err := svc.store.ReplayBulk(ctx, from, to)
	if err != nil {
		return 0, err
	}
	svc.logger.InfoContext(ctx, "poison entries replayed", "count", n, "from", from, "to", to)
	return n, nil
}

// Purge removes old poison entries.
func (svc *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	n, err := svc.store.Purge(ctx, before)
	if err != nil {
		return 0, err
	}
	svc.logger.InfoContext(ctx, "poison entries purged", "count", n, "before", before)
	return n, nil
}

// Count returns the total number of poison entries.
func (svc *Service) Count(ctx context.Context) (int64, error) {
	return svc.store.CountPoison(ctx)
}
