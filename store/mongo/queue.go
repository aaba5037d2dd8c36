package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/id"
)

// Enqueue stores a pending message.
func (s *Store) Enqueue(ctx context.Context, m *delivery.Message) error {
	_, err := s.mdb.NewInsert(toMessageModel(m)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("esignatures/mongo: enqueue: %w", err)
	}

	return nil
}

// Dequeue claims up to limit visible messages.
// Uses FindOneAndUpdate for atomic claim so concurrent workers never share
// a message.
func (s *Store) Dequeue(ctx context.Context, limit int, visibility time.Duration) ([]*delivery.Message, error) {
	result := make([]*delivery.Message, 0, limit)
	t := now()
	col := s.mdb.Collection(colMessages)

	for range limit {
		filter := bson.M{
			"visible_at": bson.M{"$lte": t},
		}

		update := bson.M{
			"$set": bson.M{
				"state":      string(delivery.StateInFlight),
				"visible_at": t.Add(visibility),
				"updated_at": t,
			},
			"$inc": bson.M{"attempts": 1},
		}

		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetSort(bson.D{{Key: "visible_at", Value: 1}})

		var m messageModel

		err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
		if err != nil {
			if isNoDocuments(err) {
				break
			}

			return nil, fmt.Errorf("esignatures/mongo: dequeue: %w", err)
		}

		msg, err := fromMessageModel(&m)
		if err != nil {
			return nil, err
		}

		result = append(result, msg)
	}

	return result, nil
}

// Ack removes a relayed message.
func (s *Store) Ack(ctx context.Context, msgID id.ID) error {
	res, err := s.mdb.NewDelete((*messageModel)(nil)).
		Filter(bson.M{"_id": msgID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("esignatures/mongo: ack: %w", err)
	}

	if res.DeletedCount() == 0 {
		return esignatures.ErrMessageNotFound
	}

	return nil
}

// Release makes a claimed message visible again at the given time.
func (s *Store) Release(ctx context.Context, msgID id.ID, at time.Time, lastError string) error {
	res, err := s.mdb.Collection(colMessages).UpdateOne(ctx,
		bson.M{"_id": msgID.String()},
		bson.M{"$set": bson.M{
			"state":      string(delivery.StatePending),
			"visible_at": at.UTC(),
			"last_error": lastError,
			"updated_at": now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("esignatures/mongo: release: %w", err)
	}

	if res.MatchedCount == 0 {
		return esignatures.ErrMessageNotFound
	}

	return nil
}

// GetMessage returns a queued message by ID.
func (s *Store) GetMessage(ctx context.Context, msgID id.ID) (*delivery.Message, error) {
	var m messageModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": msgID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, esignatures.ErrMessageNotFound
		}

		return nil, fmt.Errorf("esignatures/mongo: get message: %w", err)
	}

	return fromMessageModel(&m)
}

// CountPending returns the number of unacknowledged messages.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	count, err := s.mdb.NewFind((*messageModel)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("esignatures/mongo: count pending: %w", err)
	}

	return count, nil
}
