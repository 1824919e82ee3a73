// Package users manages per-user documents: the user document itself and
// the yearly transaction documents under it.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/pricetables/internal/docstore"
	"github.com/rickgao/pricetables/internal/model"
)

// Collection names.
const (
	Collection             = "users"
	TransactionsCollection = "transactions"
)

// ErrInvalidTransaction is wrapped by every validation failure.
var ErrInvalidTransaction = errors.New("invalid transaction")

// TransactionsDocID returns the id of the document holding a year's transactions.
func TransactionsDocID(year int) string {
	return fmt.Sprintf("transactions_%d", year)
}

// Service reads and writes user documents.
type Service struct {
	store docstore.Store
	now   func() time.Time
}

// NewService creates a Service. now defaults to time.Now.
func NewService(store docstore.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// CreateUser writes an empty user document so the user is visible to queries.
func (s *Service) CreateUser(ctx context.Context, uid string) error {
	if err := s.store.Set(ctx, Collection, uid, map[string]any{}); err != nil {
		return fmt.Errorf("create user %s: %w", uid, err)
	}
	return nil
}

// DeleteUser removes the user document and everything under it.
func (s *Service) DeleteUser(ctx context.Context, uid string) error {
	if err := s.store.RecursiveDelete(ctx, Collection, uid); err != nil {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	return nil
}

// AddTransactions merges txs into the current year's transactions document.
// Entries with an existing timestamp are replaced.
func (s *Service) AddTransactions(ctx context.Context, uid string, txs model.UserTransactions) error {
	if err := ValidateTransactions(txs); err != nil {
		return err
	}

	col := docstore.Path(Collection, uid, TransactionsCollection)
	id := TransactionsDocID(s.now().UTC().Year())
	if err := s.store.Set(ctx, col, id, txs, docstore.Merge()); err != nil {
		return fmt.Errorf("add transactions for %s: %w", uid, err)
	}
	return nil
}

// Transactions returns every transaction of the user across all years.
func (s *Service) Transactions(ctx context.Context, uid string) (model.UserTransactions, error) {
	docs, err := s.store.List(ctx, docstore.Path(Collection, uid, TransactionsCollection))
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", uid, err)
	}

	all := make(model.UserTransactions)
	for _, doc := range docs {
		var txs model.UserTransactions
		if err := doc.Decode(&txs); err != nil {
			return nil, err
		}
		for ts, tx := range txs {
			all[ts] = tx
		}
	}
	return all, nil
}

// ValidateTransactions checks every entry of a transactions batch.
func ValidateTransactions(txs model.UserTransactions) error {
	if len(txs) == 0 {
		return fmt.Errorf("%w: no transactions given", ErrInvalidTransaction)
	}
	for ts, tx := range txs {
		if ts == "" {
			return fmt.Errorf("%w: empty timestamp", ErrInvalidTransaction)
		}
		if !model.AssetClass(tx.AssetType).Valid() {
			return fmt.Errorf("%w: %s: unknown asset type %q", ErrInvalidTransaction, ts, tx.AssetType)
		}
		if tx.AssetID == "" {
			return fmt.Errorf("%w: %s: asset id is required", ErrInvalidTransaction, ts)
		}
	}
	return nil
}
