package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/id"
	"github.com/squideyes/esignatures/internal/entity"
)

// messageModel is the JSON representation stored in Redis.
type messageModel struct {
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	State      string          `json:"state"`
	Attempts   int             `json:"attempts"`
	VisibleAt  time.Time       `json:"visible_at"`
	LastError  string          `json:"last_error"`
	ReceivedAt time.Time       `json:"received_at"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toMessageModel(m *delivery.Message) *messageModel {
	return &messageModel{
		ID:         m.ID.String(),
		Payload:    m.Payload,
		State:      string(m.State),
		Attempts:   m.Attempts,
		VisibleAt:  m.VisibleAt,
		LastError:  m.LastError,
		ReceivedAt: m.ReceivedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func fromMessageModel(m *messageModel) (*delivery.Message, error) {
	msgID, err := id.ParseMessageID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse message ID %q: %w", m.ID, err)
	}
	return &delivery.Message{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         msgID,
		Payload:    m.Payload,
		State:      delivery.State(m.State),
		Attempts:   m.Attempts,
		VisibleAt:  m.VisibleAt,
		LastError:  m.LastError,
		ReceivedAt: m.ReceivedAt,
	}, nil
}

// claimScript atomically claims visible messages by pushing their score
// to the end of the visibility window.
// KEYS[1] = esig:z:queue
// ARGV[1] = current unix timestamp (score threshold)
// ARGV[2] = limit
// ARGV[3] = claim expiry score
var claimScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for i, id in ipairs(ids) do
    redis.call('ZADD', KEYS[1], ARGV[3], id)
end
return ids
`)

func (s *Store) Enqueue(ctx context.Context, m *delivery.Message) error {
	model := toMessageModel(m)
	if err := s.setEntity(ctx, entityKey(prefixMessage, model.ID), model); err != nil {
		return fmt.Errorf("esignatures/redis: enqueue message: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zQueue, goredis.Z{Score: scoreFromTime(m.VisibleAt), Member: model.ID}).Err(); err != nil {
		return fmt.Errorf("esignatures/redis: enqueue index: %w", err)
	}
	return nil
}

func (s *Store) Dequeue(ctx context.Context, limit int, visibility time.Duration) ([]*delivery.Message, error) {
	t := now()
	until := t.Add(visibility)
	nowScore := fmt.Sprintf("%f", scoreFromTime(t))
	untilScore := fmt.Sprintf("%f", scoreFromTime(until))

	ids, err := claimScript.Run(ctx, s.rdb, []string{zQueue}, nowScore, limit, untilScore).StringSlice()
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("esignatures/redis: claim script: %w", err)
	}

	messages := make([]*delivery.Message, 0, len(ids))
	for _, msgID := range ids {
		key := entityKey(prefixMessage, msgID)
		var model messageModel
		if err := s.getEntity(ctx, key, &model); err != nil {
			if isNotFound(err) {
				// Acked between index read and fetch.
				s.rdb.ZRem(ctx, zQueue, msgID)
				continue
			}
			return nil, fmt.Errorf("esignatures/redis: dequeue get %s: %w", msgID, err)
		}

		model.Attempts++
		model.State = string(delivery.StateInFlight)
		model.VisibleAt = until
		model.UpdatedAt = t
		if err := s.setEntity(ctx, key, &model); err != nil {
			return nil, fmt.Errorf("esignatures/redis: dequeue update %s: %w", msgID, err)
		}

		m, err := fromMessageModel(&model)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (s *Store) Ack(ctx context.Context, msgID id.ID) error {
	removed, err := s.rdb.ZRem(ctx, zQueue, msgID.String()).Result()
	if err != nil {
		return fmt.Errorf("esignatures/redis: ack index: %w", err)
	}
	if err := s.deleteRaw(ctx, entityKey(prefixMessage, msgID.String())); err != nil && !isNotFound(err) {
		return fmt.Errorf("esignatures/redis: ack message: %w", err)
	}
	if removed == 0 {
		return esignatures.ErrMessageNotFound
	}
	return nil
}

func (s *Store) Release(ctx context.Context, msgID id.ID, at time.Time, lastError string) error {
	key := entityKey(prefixMessage, msgID.String())

	var model messageModel
	if err := s.getEntity(ctx, key, &model); err != nil {
		if isNotFound(err) {
			return esignatures.ErrMessageNotFound
		}
		return fmt.Errorf("esignatures/redis: release get: %w", err)
	}

	model.State = string(delivery.StatePending)
	model.VisibleAt = at.UTC()
	model.LastError = lastError
	model.UpdatedAt = now()

	if err := s.setEntity(ctx, key, &model); err != nil {
		return fmt.Errorf("esignatures/redis: release update: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zQueue, goredis.Z{Score: scoreFromTime(model.VisibleAt), Member: model.ID}).Err(); err != nil {
		return fmt.Errorf("esignatures/redis: release index: %w", err)
	}
	return nil
}

func (s *Store) GetMessage(ctx context.Context, msgID id.ID) (*delivery.Message, error) {
	var model messageModel
	if err := s.getEntity(ctx, entityKey(prefixMessage, msgID.String()), &model); err != nil {
		if isNotFound(err) {
			return nil, esignatures.ErrMessageNotFound
		}
		return nil, fmt.Errorf("esignatures/redis: get message: %w", err)
	}
	return fromMessageModel(&model)
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	n, err := s.rdb.ZCard(ctx, zQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("esignatures/redis: count pending: %w", err)
	}
	return n, nil
}
