// Package sessionstore persists per-browser session records for the web
// template. The identity service still owns every session; these records are
// the provider's cached copy made durable across requests.
package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound is the error we return for missing session records
var ErrNotFound = errors.New("session record not found")

// Store holds session records keyed by cookie id.
type Store interface {
	Put(ctx context.Context, record *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context) (int, error)
}

// BunStore keeps records in a relational table.
type BunStore struct {
	db *bun.DB
}

var _ Store = (*BunStore)(nil)

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// Init creates the sessions table when missing. There is no migration
// history to manage; the table is the whole schema.
func (s *BunStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *BunStore) Put(ctx context.Context, record *Record) error {
	now := time.Now()
	record.UpdatedAt = &now
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *BunStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	record := &Record{}
	err := s.db.NewSelect().
		Model(record).
		Where("sess.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *BunStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.NewDelete().
		Model((*Record)(nil)).
		Where("sess.id = ?", id).
		Exec(ctx)
	return err
}

func (s *BunStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.NewDelete().
		Model((*Record)(nil)).
		Where("sess.expires_at IS NOT NULL").
		Where("sess.expires_at < ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}
