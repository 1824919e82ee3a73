package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// SQLiteStore stores documents in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// SQLite has no row locks; merges are serialised in process.
	writeMu sync.Mutex
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "data/pricetables.db"
	}
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma wal: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string, dst any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	var data, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Data: []byte(data), UpdatedAt: parseTime(updated)}.Decode(dst)
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, v any, opts ...SetOption) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	o := applySetOptions(opts)
	data, patch, err := encode(v, o.merge)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set: %w", err)
	}
	defer tx.Rollback()

	if o.merge {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM documents WHERE collection = ? AND id = ?`,
			collection, id,
		).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read %s/%s: %w", collection, id, err)
		default:
			if data, err = mergeInto([]byte(existing), patch); err != nil {
				return err
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id,
	); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLiteStore) RecursiveDelete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	prefix := subtreePrefix(collection, id)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recursive delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id,
	); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE substr(collection, 1, length(?)) = ?`, prefix, prefix,
	); err != nil {
		return fmt.Errorf("delete subcollections of %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recursive delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.ListAfter(ctx, collection, "")
}

func (s *SQLiteStore) ListAfter(ctx context.Context, collection, afterID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, updated_at FROM documents
		WHERE collection = ? AND id > ?
		ORDER BY id`,
		collection, afterID,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, data, updated string
		if err := rows.Scan(&id, &data, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, Document{ID: id, Data: []byte(data), UpdatedAt: parseTime(updated)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
