package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/id"
)

// Push records a poisoned message.
func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	_, err := s.mdb.NewInsert(toPoisonModel(entry)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("esignatures/mongo: push poison: %w", err)
	}

	return nil
}

// ListPoison returns poison entries, newest first, optionally filtered.
func (s *Store) ListPoison(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	var models []poisonModel

	filter := bson.M{}
	if opts.Reason != "" {
		filter["reason"] = string(opts.Reason)
	}

	if opts.From != nil || opts.To != nil {
		dateFilter := bson.M{}
		if opts.From != nil {
			dateFilter["$gte"] = *opts.From
		}

		if opts.To != nil {
			dateFilter["$lte"] = *opts.To
		}

		filter["failed_at"] = dateFilter
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "failed_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("esignatures/mongo: list poison: %w", err)
	}

	result := make([]*dlq.Entry, 0, len(models))

	for i := range models {
		entry, err := fromPoisonModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, entry)
	}

	return result, nil
}

// GetPoison returns a poison entry by ID.
func (s *Store) GetPoison(ctx context.Context, psnID id.ID) (*dlq.Entry, error) {
	var m poisonModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": psnID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, esignatures.ErrPoisonNotFound
		}

		return nil, fmt.Errorf("esignatures/mongo: get poison: %w", err)
	}

	return fromPoisonModel(&m)
}

// Replay re-enqueues the entry's payload and marks the entry replayed.
func (s *Store) Replay(ctx context.Context, psnID id.ID) error {
	entry, err := s.GetPoison(ctx, psnID)
	if err != nil {
		return err
	}

	return s.replay(ctx, entry, now())
}

func (s *Store) replay(ctx context.Context, entry *dlq.Entry, t time.Time) error {
	m := delivery.NewMessage(entry.Payload)
	m.ReceivedAt = entry.ReceivedAt

	if err := s.Enqueue(ctx, m); err != nil {
		return fmt.Errorf("esignatures/mongo: replay enqueue: %w", err)
	}

	_, err := s.mdb.Collection(colPoison).UpdateOne(ctx,
		bson.M{"_id": entry.ID.String()},
		bson.M{"$set": bson.M{"replayed_at": t, "updated_at": t}},
	)
	if err != nil {
		return fmt.Errorf("esignatures/mongo: replay mark: %w", err)
	}

	return nil
}

// ReplayBulk replays every entry in a time window that has not been
// replayed yet.
func (s *Store) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	var models []poisonModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"failed_at": bson.M{
				"$gte": from,
				"$lte": to,
			},
			"replayed_at": bson.M{"$exists": false},
		}).
		Scan(ctx); err != nil {
		return 0, fmt.Errorf("esignatures/mongo: replay bulk find: %w", err)
	}

	var count int64
	t := now()

	for i := range models {
		entry, err := fromPoisonModel(&models[i])
		if err != nil {
			return count, err
		}

		if err := s.replay(ctx, entry, t); err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}

// Purge deletes poison entries that failed before a threshold.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*poisonModel)(nil)).
		Many().
		Filter(bson.M{"failed_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("esignatures/mongo: purge: %w", err)
	}

	return res.DeletedCount(), nil
}

// CountPoison returns the total number of poison entries.
func (s *Store) CountPoison(ctx context.Context) (int64, error) {
	count, err := s.mdb.NewFind((*poisonModel)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("esignatures/mongo: count poison: %w", err)
	}

	return count, nil
}
