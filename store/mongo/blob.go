package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/squideyes/esignatures"
)

// PutBlob upserts the document stored under key.
func (s *Store) PutBlob(ctx context.Context, key string, data []byte) error {
	t := now()

	_, err := s.mdb.Collection(colBlobs).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{
			"$set":         bson.M{"data": data, "updated_at": t},
			"$setOnInsert": bson.M{"created_at": t},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("esignatures/mongo: put blob: %w", err)
	}

	return nil
}

// GetBlob returns the document stored under key.
func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var m blobModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, esignatures.ErrBlobNotFound
		}

		return nil, fmt.Errorf("esignatures/mongo: get blob: %w", err)
	}

	return m.Data, nil
}
