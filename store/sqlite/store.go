// Package sqlite implements store.Store on SQLite through Grove.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/id"
	esigstore "github.com/squideyes/esignatures/store"
)

// compile-time interface check
var _ esigstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("esignatures/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: sqlite: %w", esignatures.ErrMigrationFailed, err)
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
	_, err := s.sdb.NewInsert(toMessageModel(m)).Exec(ctx)
	return err
}

func (s *Store) Dequeue(ctx context.Context, limit int, visibility time.Duration) ([]*delivery.Message, error) {
	now := time.Now().UTC()

	// SQLite serializes writes (WAL mode), so no FOR UPDATE SKIP LOCKED needed.
	var models []messageModel
	err := s.sdb.NewRaw(`
		UPDATE esig_messages
		SET state = 'in_flight', attempts = attempts + 1, visible_at = ?, updated_at = ?
		WHERE id IN (
			SELECT id FROM esig_messages
			WHERE visible_at <= ?
			ORDER BY visible_at ASC
			LIMIT ?
		)
		RETURNING *
	`, now.Add(visibility), now, now, limit).Scan(ctx, &models)
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
	res, err := s.sdb.NewDelete((*messageModel)(nil)).
		Where("id = ?", msgID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, esignatures.ErrMessageNotFound)
}

func (s *Store) Release(ctx context.Context, msgID id.ID, at time.Time, lastError string) error {
	res, err := s.sdb.NewUpdate((*messageModel)(nil)).
		Set("state = ?", string(delivery.StatePending)).
		Set("visible_at = ?", at.UTC()).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", msgID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, esignatures.ErrMessageNotFound)
}

func (s *Store) GetMessage(ctx context.Context, msgID id.ID) (*delivery.Message, error) {
	m := new(messageModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", msgID.String()).
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
	return s.sdb.NewSelect((*messageModel)(nil)).Count(ctx)
}

// ==================== Blobs ====================

func (s *Store) PutBlob(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	_, err := s.sdb.NewInsert(&blobModel{Key: key, Data: data, CreatedAt: now, UpdatedAt: now}).
		OnConflict("(key) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	m := new(blobModel)
	err := s.sdb.NewSelect(m).
		Where("key = ?", key).
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
	_, err := s.sdb.NewInsert(toPoisonModel(entry)).Exec(ctx)
	return err
}

func (s *Store) ListPoison(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	var models []poisonModel
	q := s.sdb.NewSelect(&models)

	if opts.Reason != "" {
		q = q.Where("reason = ?", string(opts.Reason))
	}
	if opts.From != nil {
		q = q.Where("failed_at >= ?", *opts.From)
	}
	if opts.To != nil {
		q = q.Where("failed_at <= ?", *opts.To)
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
	err := s.sdb.NewSelect(m).
		Where("id = ?", psnID.String()).
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

	_, err := s.sdb.NewUpdate((*poisonModel)(nil)).
		Set("replayed_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", entry.ID.String()).
		Exec(ctx)
	return err
}

func (s *Store) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	var models []poisonModel
	if err := s.sdb.NewSelect(&models).
		Where("failed_at >= ?", from).
		Where("failed_at <= ?", to).
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
	res, err := s.sdb.NewDelete((*poisonModel)(nil)).
		Where("failed_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CountPoison(ctx context.Context) (int64, error) {
	return s.sdb.NewSelect((*poisonModel)(nil)).Count(ctx)
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
