package writer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/pricetables/internal/docstore"
	"github.com/rickgao/pricetables/internal/metrics"
	"github.com/rickgao/pricetables/internal/model"
)

// Collection holds every snapshot.
const Collection = "price-tables"

// KeyLayout formats snapshot keys.
const KeyLayout = "2006-01-02-15"

// SnapshotKey returns the key for a run starting at t. The skew moves a run
// that fires a few minutes early onto the following hour.
func SnapshotKey(t time.Time, skew time.Duration) string {
	return t.UTC().Add(skew).Format(KeyLayout)
}

// ParseKey parses a snapshot key back into its UTC hour.
func ParseKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snapshot key %q: %w", key, err)
	}
	return t, nil
}

// SnapshotWriteError is returned when a snapshot could not be stored.
type SnapshotWriteError struct {
	Key string
	Err error
}

func (e *SnapshotWriteError) Error() string {
	return fmt.Sprintf("write snapshot %s: %v", e.Key, e.Err)
}

func (e *SnapshotWriteError) Unwrap() error {
	return e.Err
}

// SnapshotWriter reads and writes snapshots.
type SnapshotWriter struct {
	store  docstore.Store
	logger *slog.Logger
}

// NewSnapshotWriter creates a new SnapshotWriter.
func NewSnapshotWriter(store docstore.Store, logger *slog.Logger) *SnapshotWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWriter{
		store:  store,
		logger: logger,
	}
}

// WriteSnapshot stores table under key, replacing any existing snapshot.
// One attempt; failures are returned as *SnapshotWriteError.
func (w *SnapshotWriter) WriteSnapshot(ctx context.Context, key string, table model.PriceTable) error {
	if _, err := ParseKey(key); err != nil {
		metrics.RecordSnapshotWrite("invalid_key")
		return &SnapshotWriteError{Key: key, Err: err}
	}

	if err := w.store.Set(ctx, Collection, key, table); err != nil {
		metrics.RecordSnapshotWrite("error")
		return &SnapshotWriteError{Key: key, Err: err}
	}

	metrics.RecordSnapshotWrite("ok")
	w.logger.Debug("snapshot written",
		"key", key,
		"crypto", len(table.Crypto),
		"nasdaq", len(table.Nasdaq),
		"forex", len(table.Forex),
		"bist", len(table.Bist),
	)
	return nil
}

// ListSnapshots returns every snapshot with a key greater than afterKey,
// or all snapshots when afterKey is empty.
func (w *SnapshotWriter) ListSnapshots(ctx context.Context, afterKey string) (model.PriceTables, error) {
	docs, err := w.store.ListAfter(ctx, Collection, afterKey)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	tables := make(model.PriceTables, len(docs))
	for _, doc := range docs {
		var table model.PriceTable
		if err := doc.Decode(&table); err != nil {
			return nil, err
		}
		tables[doc.ID] = table
	}
	return tables, nil
}
