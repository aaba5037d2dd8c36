// Package postgres implements store.Store on PostgreSQL through Grove.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/id"
	esigstore "github.com/squideyes/esignatures/store"
)

// compile-time interface check
var _ esigstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("esignatures/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", esignatures.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Queue ====================

func (s *Store) Enqueue(ctx context.Context, m *delivery.Message) error {
	_, err := s.pg.NewInsert(toMessageModel(m)).Exec(ctx)
	return err
}

func (s *Store) Dequeue(ctx context.Context, limit int, visibility time.Duration) ([]*delivery.Message, error) {
	now := time.Now().UTC()

	// FOR UPDATE SKIP LOCKED keeps concurrent claimers off the same rows.
	var models []messageModel
	err := s.pg.NewRaw(`
		UPDATE esig_messages
		SET state = 'in_flight', attempts = attempts + 1, visible_at = $2, updated_at = $3
		WHERE id IN (
			SELECT id FROM esig_messages
			WHERE visible_at <= $3
			ORDER BY visible_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`, limit, now.Add(visibility), now).Scan(ctx, &models)
	if err != nil {
		return nil, err
	}

	result := make([]*delivery.Message, len(models))
	for i := range models {
		m, err := fromMessageModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = m
	}
	return result, nil
}

func (s *Store) Ack(ctx context.Context, msgID id.ID) error {
	res, err := s.pg.NewDelete((*messageModel)(nil)).
		Where("id = $1", msgID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, esignatures.ErrMessageNotFound)
}

func (s *Store) Release(ctx context.Context, msgID id.ID, at time.Time, lastError string) error {
	res, err := s.pg.NewUpdate((*messageModel)(nil)).
		Set("state = $1", string(delivery.StatePending)).
		Set("visible_at = $2", at.UTC()).
		Set("last_error = $3", lastError).
		Set("updated_at = $4", time.Now().UTC()).
		Where("id = $5", msgID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, esignatures.ErrMessageNotFound)
}

func (s *Store) GetMessage(ctx context.Context, msgID id.ID) (*delivery.Message, error) {
	m := new(messageModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", msgID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, esignatures.ErrMessageNotFound
		}
		return nil, err
	}
	return fromMessageModel(m)
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.pg.NewSelect((*messageModel)(nil)).Count(ctx)
}

// ==================== Blobs ====================

func (s *Store) PutBlob(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	_, err := s.pg.NewInsert(&blobModel{Key: key, Data: data, CreatedAt: now, UpdatedAt: now}).
		OnConflict("(key) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	m := new(blobModel)
	err := s.pg.NewSelect(m).
		Where("key = $1", key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, esignatures.ErrBlobNotFound
		}
		return nil, err
	}
	return m.Data, nil
}

// ==================== Poison ====================

func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	_, err := s.pg.NewInsert(toPoisonModel(entry)).Exec(ctx)
	return err
}

func (s *Store) ListPoison(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	var models []poisonModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Reason != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("reason = $%d", argIdx), string(opts.Reason))
	}
	if opts.From != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("failed_at >= $%d", argIdx), *opts.From)
	}
	if opts.To != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("failed_at <= $%d", argIdx), *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("failed_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*dlq.Entry, len(models))
	for i := range models {
		entry, err := fromPoisonModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = entry
	}
	return result, nil
}

func (s *Store) GetPoison(ctx context.Context, psnID id.ID) (*dlq.Entry, error) {
	m := new(poisonModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", psnID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, esignatures.ErrPoisonNotFound
		}
		return nil, err
	}
	return fromPoisonModel(m)
}

func (s *Store) Replay(ctx context.Context, psnID id.ID) error {
	entry, err := s.GetPoison(ctx, psnID)
	if err != nil {
		return err
	}
	return s.replay(ctx, entry, time.Now().UTC())
}

// replay enqueues the entry's payload as a new message, then marks the
// entry replayed.
func (s *Store) replay(ctx context.Context, entry *dlq.Entry, at time.Time) error {
	m := delivery.NewMessage(entry.Payload)
	m.ReceivedAt = entry.ReceivedAt
	if err := s.Enqueue(ctx, m); err != nil {
		return err
	}

	_, err := s.pg.NewUpdate((*poisonModel)(nil)).
		Set("replayed_at = $1", at).
		Set("updated_at = $2", at).
		Where("id = $3", entry.ID.String()).
		Exec(ctx)
	return err
}

func (s *Store) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	var models []poisonModel
	if err := s.pg.NewSelect(&models).
		Where("failed_at >= $1", from).
		Where("failed_at <= $2", to).
		Where("replayed_at IS NULL").
		Scan(ctx); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var count int64
	for i := range models {
		entry, err := fromPoisonModel(&models[i])
		if err != nil {
			return count, err
		}
		if err := s.replay(ctx, entry, now); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pg.NewDelete((*poisonModel)(nil)).
		Where("failed_at < $1", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CountPoison(ctx context.Context) (int64, error) {
	return s.pg.NewSelect((*poisonModel)(nil)).Count(ctx)
}

// rowsResult is the part of a driver exec result requireRow needs.
type rowsResult interface {
	RowsAffected() (int64, error)
}

// requireRow maps a zero-row result to notFound.
func requireRow(res rowsResult, notFound error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
