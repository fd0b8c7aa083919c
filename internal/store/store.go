// Package store persists transform entries in Postgres so a new render
// session on a document can replay every transform applied to it.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/typeid"
)

const schema = `
CREATE TABLE IF NOT EXISTS transform_entries (
	id          BIGSERIAL PRIMARY KEY,
	batch_id    TEXT        NOT NULL,
	document_id TEXT        NOT NULL,
	shape_id    UUID        NOT NULL,
	entry       BYTEA       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS transform_entries_document_idx
	ON transform_entries (document_id, id);
`

const (
	insertEntry = `INSERT INTO transform_entries (batch_id, document_id, shape_id, entry) VALUES ($1, $2, $3, $4)`

	listEntries = `SELECT entry FROM transform_entries WHERE document_id = $1 ORDER BY id`

	deleteEntries = `DELETE FROM transform_entries WHERE document_id = $1`
)

// DBTX is the subset of pgx shared by pools, connections and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewPool connects to databaseURL and checks the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveEntries stores entries as one batch, one row per entry holding its
// binary encoding.
func (s *Store) SaveEntries(ctx context.Context, documentID string, entries []shape.TransformEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batchID := typeid.NewBatchID()

	b := &pgx.Batch{}
	for _, e := range entries {
		data, err := e.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode entry %s: %w", e.ID, err)
		}
		b.Queue(insertEntry, batchID, documentID, e.ID, data)
	}

	br := s.db.SendBatch(ctx, b)
	for range entries {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert entries of %s: %w", documentID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert entries of %s: %w", documentID, err)
	}

	slog.Debug("saved transform entries", "document", documentID, "batch", batchID, "count", len(entries))
	return nil
}

// Entries returns every stored entry of a document in the order it was
// applied. Entries are deltas, so all of them are needed to rebuild a shape.
func (s *Store) Entries(ctx context.Context, documentID string) ([]shape.TransformEntry, error) {
	rows, err := s.db.Query(ctx, listEntries, documentID)
	if err != nil {
		return nil, fmt.Errorf("query entries of %s: %w", documentID, err)
	}
	blobs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan entries of %s: %w", documentID, err)
	}

	entries := make([]shape.TransformEntry, len(blobs))
	for i, blob := range blobs {
		if err := entries[i].UnmarshalBinary(blob); err != nil {
			return nil, fmt.Errorf("decode entry of %s: %w", documentID, err)
		}
	}
	return entries, nil
}

// DeleteEntries forgets every stored entry of a document.
func (s *Store) DeleteEntries(ctx context.Context, documentID string) (int64, error) {
	tag, err := s.db.Exec(ctx, deleteEntries, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete entries of %s: %w", documentID, err)
	}
	return tag.RowsAffected(), nil
}
