package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// PostgresStore stores documents in a single JSONB table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. Call Migrate before first use.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the documents table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string, dst any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	var (
		doc  Document
		data []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, data, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&doc.ID, &data, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc.Data = data
	return doc.Decode(dst)
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, v any, opts ...SetOption) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	o := applySetOptions(opts)
	data, patch, err := encode(v, o.merge)
	if err != nil {
		return err
	}

	if !o.merge {
		if err := upsert(ctx, s.db, collection, id, data); err != nil {
			return fmt.Errorf("set %s/%s: %w", collection, id, err)
		}
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing []byte
	err = tx.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		collection, id,
	).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("lock %s/%s: %w", collection, id, err)
	default:
		if data, err = mergeInto(existing, patch); err != nil {
			return err
		}
	}

	if err := upsert(ctx, tx, collection, id, data); err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsert(ctx context.Context, db execer, collection, id string, data []byte) error {
	_, err := db.Exec(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		collection, id, string(data), time.Now().UTC(),
	)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id,
	); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) RecursiveDelete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	batch.Queue(`DELETE FROM documents WHERE left(collection, length($1)) = $1`, subtreePrefix(collection, id))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin recursive delete: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("recursive delete %s/%s: %w", collection, id, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit recursive delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.ListAfter(ctx, collection, "")
}

func (s *PostgresStore) ListAfter(ctx context.Context, collection, afterID string) ([]Document, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, data, updated_at FROM documents
		WHERE collection = $1 AND id COLLATE "C" > $2
		ORDER BY id COLLATE "C"`,
		collection, afterID,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc  Document
			data []byte
		)
		if err := rows.Scan(&doc.ID, &data, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Data = data
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}
