package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/id"
	"github.com/squideyes/esignatures/internal/entity"
)

// poisonModel is the JSON representation stored in Redis.
type poisonModel struct {
	ID         string          `json:"id"`
	MessageID  string          `json:"message_id"`
	Payload    json.RawMessage `json:"payload"`
	Reason     string          `json:"reason"`
	Error      string          `json:"error"`
	Attempts   int             `json:"attempts"`
	ReceivedAt time.Time       `json:"received_at"`
	FailedAt   time.Time       `json:"failed_at"`
	ReplayedAt *time.Time      `json:"replayed_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toPoisonModel(e *dlq.Entry) *poisonModel {
	return &poisonModel{
		ID:         e.ID.String(),
		MessageID:  e.MessageID.String(),
		Payload:    e.Payload,
		Reason:     string(e.Reason),
		Error:      e.Error,
		Attempts:   e.Attempts,
		ReceivedAt: e.ReceivedAt,
		FailedAt:   e.FailedAt,
		ReplayedAt: e.ReplayedAt,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func fromPoisonModel(m *poisonModel) (*dlq.Entry, error) {
	psnID, err := id.ParsePoisonID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse poison ID %q: %w", m.ID, err)
	}
	msgID, err := id.ParseMessageID(m.MessageID)
	if err != nil {
		return nil, fmt.Errorf("parse message ID %q: %w", m.MessageID, err)
	}
	return &dlq.Entry{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         psnID,
		MessageID:  msgID,
		Payload:    m.Payload,
		Reason:     delivery.FailureReason(m.Reason),
		Error:      m.Error,
		Attempts:   m.Attempts,
		ReceivedAt: m.ReceivedAt,
		FailedAt:   m.FailedAt,
		ReplayedAt: m.ReplayedAt,
	}, nil
}

func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	m := toPoisonModel(entry)
	if err := s.setEntity(ctx, entityKey(prefixPoison, m.ID), m); err != nil {
		return fmt.Errorf("esignatures/redis: push poison: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zPoisonAll, goredis.Z{Score: scoreFromTime(m.FailedAt), Member: m.ID}).Err(); err != nil {
		return fmt.Errorf("esignatures/redis: push poison index: %w", err)
	}
	return nil
}

func (s *Store) ListPoison(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if opts.From != nil {
		lo = scoreFromTime(*opts.From)
	}
	if opts.To != nil {
		hi = scoreFromTime(*opts.To)
	}

	ids, err := s.zRangeByScoreIDs(ctx, zPoisonAll, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("esignatures/redis: list poison: %w", err)
	}

	entries := make([]*dlq.Entry, 0, len(ids))
	for _, psnID := range ids {
		e, err := s.loadPoison(ctx, psnID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if !opts.Match(e) {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FailedAt.After(entries[j].FailedAt)
	})

	return applyPagination(entries, opts.Offset, opts.Limit), nil
}

func (s *Store) loadPoison(ctx context.Context, psnID string) (*dlq.Entry, error) {
	var m poisonModel
	if err := s.getEntity(ctx, entityKey(prefixPoison, psnID), &m); err != nil {
		return nil, err
	}
	return fromPoisonModel(&m)
}

func (s *Store) GetPoison(ctx context.Context, psnID id.ID) (*dlq.Entry, error) {
	e, err := s.loadPoison(ctx, psnID.String())
	if err != nil {
		if isNotFound(err) {
			return nil, esignatures.ErrPoisonNotFound
		}
		return nil, fmt.Errorf("esignatures/redis: get poison: %w", err)
	}
	return e, nil
}

func (s *Store) Replay(ctx context.Context, psnID id.ID) error {
	e, err := s.GetPoison(ctx, psnID)
	if err != nil {
		return err
	}
	return s.replay(ctx, e, now())
}

// replay enqueues the entry's payload as a new message, then marks the
// entry replayed.
func (s *Store) replay(ctx context.Context, e *dlq.Entry, at time.Time) error {
	m := delivery.NewMessage(e.Payload)
	m.ReceivedAt = e.ReceivedAt
	if err := s.Enqueue(ctx, m); err != nil {
		return err
	}

	e.ReplayedAt = &at
	e.UpdatedAt = at
	if err := s.setEntity(ctx, entityKey(prefixPoison, e.ID.String()), toPoisonModel(e)); err != nil {
		return fmt.Errorf("esignatures/redis: mark replayed: %w", err)
	}
	return nil
}

func (s *Store) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	ids, err := s.zRangeByScoreIDs(ctx, zPoisonAll, scoreFromTime(from), scoreFromTime(to))
	if err != nil {
		return 0, fmt.Errorf("esignatures/redis: replay bulk: %w", err)
	}

	t := now()
	var count int64
	for _, psnID := range ids {
		e, err := s.loadPoison(ctx, psnID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return count, err
		}
		if e.ReplayedAt != nil {
			continue
		}
		if err := s.replay(ctx, e, t); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	// Exclusive upper bound: entries failing exactly at before are kept.
	ids, err := s.rdb.ZRangeByScore(ctx, zPoisonAll, &goredis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("(%f", scoreFromTime(before)),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("esignatures/redis: purge: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.rdb.Pipeline()
	for _, psnID := range ids {
		pipe.Del(ctx, entityKey(prefixPoison, psnID))
		pipe.ZRem(ctx, zPoisonAll, psnID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("esignatures/redis: purge exec: %w", err)
	}
	return int64(len(ids)), nil
}

func (s *Store) CountPoison(ctx context.Context) (int64, error) {
	n, err := s.rdb.ZCard(ctx, zPoisonAll).Result()
	if err != nil {
		return 0, fmt.Errorf("esignatures/redis: count poison: %w", err)
	}
	return n, nil
}
