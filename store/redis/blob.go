package redis

import (
	"context"
	"fmt"

	"github.com/squideyes/esignatures"
)

func (s *Store) PutBlob(ctx context.Context, key string, data []byte) error {
	if err := s.setRaw(ctx, entityKey(prefixBlob, key), data); err != nil {
		return fmt.Errorf("esignatures/redis: put blob %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	data, err := s.getRaw(ctx, entityKey(prefixBlob, key))
	if err != nil {
		if isNotFound(err) {
			return nil, esignatures.ErrBlobNotFound
		}
		return nil, fmt.Errorf("esignatures/redis: get blob %s: %w", key, err)
	}
	return data, nil
}
