// Package redis implements store.Store on Redis.
//
// Messages, poison entries and blobs are JSON or raw values under
// "esig:" keys. Sorted sets index the queue by visibility time and the
// poison entries by failure time. Claims run in a Lua script so two
// workers never claim the same message.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"

	esigstore "github.com/squideyes/esignatures/store"
)

// compile-time interface check
var _ esigstore.Store = (*Store)(nil)

// Store implements store.Store using Redis, optionally through Grove KV.
type Store struct {
	kv  *kv.Store
	rdb goredis.UniversalClient
}

// New creates a Redis store on a go-redis client.
func New(rdb goredis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// NewFromKV creates a Redis store backed by Grove KV. Records go through
// the KV store; indexes and scripts use the underlying client.
func NewFromKV(store *kv.Store) *Store {
	return &Store{
		kv:  store,
		rdb: redisdriver.UnwrapClient(store),
	}
}

// Migrate is a no-op for Redis (no schema migrations needed).
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.kv != nil {
		return s.kv.Ping(ctx)
	}
	return s.rdb.Ping(ctx).Err()
}

// Close closes the connection.
func (s *Store) Close() error {
	if s.kv != nil {
		return s.kv.Close()
	}
	return s.rdb.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// scoreFromTime converts a time.Time to a sorted set score (unix seconds as float64).
func scoreFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// isNotFound checks for both the KV and the raw client not-found sentinels.
func isNotFound(err error) bool {
	return errors.Is(err, kv.ErrNotFound) || errors.Is(err, goredis.Nil)
}

func (s *Store) getRaw(ctx context.Context, key string) ([]byte, error) {
	if s.kv != nil {
		return s.kv.GetRaw(ctx, key)
	}
	return s.rdb.Get(ctx, key).Bytes()
}

func (s *Store) setRaw(ctx context.Context, key string, raw []byte) error {
	if s.kv != nil {
		return s.kv.SetRaw(ctx, key, raw)
	}
	return s.rdb.Set(ctx, key, raw, 0).Err()
}

func (s *Store) deleteRaw(ctx context.Context, key string) error {
	if s.kv != nil {
		return s.kv.Delete(ctx, key)
	}
	return s.rdb.Del(ctx, key).Err()
}

// getEntity retrieves and decodes a JSON entity.
func (s *Store) getEntity(ctx context.Context, key string, dest any) error {
	raw, err := s.getRaw(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// setEntity encodes and stores a JSON entity.
func (s *Store) setEntity(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("esignatures/redis: marshal entity: %w", err)
	}
	return s.setRaw(ctx, key, raw)
}

// zRangeByScoreIDs returns all member IDs from a sorted set within a score range.
func (s *Store) zRangeByScoreIDs(ctx context.Context, key string, lo, hi float64) ([]string, error) {
	minStr := "-inf"
	maxStr := "+inf"
	if !math.IsInf(lo, -1) {
		minStr = strconv.FormatFloat(lo, 'f', -1, 64)
	}
	if !math.IsInf(hi, 1) {
		maxStr = strconv.FormatFloat(hi, 'f', -1, 64)
	}
	return s.rdb.ZRangeByScore(ctx, key, &goredis.ZRangeBy{
		Min: minStr,
		Max: maxStr,
	}).Result()
}

// applyPagination applies offset and limit to a slice.
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
