// Package catalog reads and writes the asset catalog: the symbols tracked
// per asset class, stored as a single document.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rickgao/pricetables/internal/docstore"
	"github.com/rickgao/pricetables/internal/model"
)

// Location of the catalog document.
const (
	Collection = "server"
	DocumentID = "asset_table"
)

// ErrCatalogNotFound is returned when the catalog document does not exist.
var ErrCatalogNotFound = errors.New("asset catalog not found")

// CatalogReadError wraps any other failure reading the catalog.
type CatalogReadError struct {
	Err error
}

func (e *CatalogReadError) Error() string {
	return fmt.Sprintf("read asset catalog: %v", e.Err)
}

func (e *CatalogReadError) Unwrap() error {
	return e.Err
}

// Reader reads the asset catalog from the document store.
type Reader struct {
	store docstore.Store
}

// NewReader creates a Reader.
func NewReader(store docstore.Store) *Reader {
	return &Reader{store: store}
}

// ReadCatalog returns the current catalog. Classes missing from the stored
// document come back as empty maps.
func (r *Reader) ReadCatalog(ctx context.Context) (model.AssetCatalog, error) {
	var c model.AssetCatalog
	err := r.store.Get(ctx, Collection, DocumentID, &c)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.AssetCatalog{}, ErrCatalogNotFound
	}
	if err != nil {
		return model.AssetCatalog{}, &CatalogReadError{Err: err}
	}
	return normalize(c), nil
}

// WriteCatalog overwrites the catalog document.
func (r *Reader) WriteCatalog(ctx context.Context, c model.AssetCatalog) error {
	if err := Validate(c); err != nil {
		return err
	}
	if err := r.store.Set(ctx, Collection, DocumentID, normalize(c)); err != nil {
		return fmt.Errorf("write asset catalog: %w", err)
	}
	return nil
}

// Decode parses a catalog document. Keys outside the four asset classes
// are rejected.
func Decode(rd io.Reader) (model.AssetCatalog, error) {
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()

	var c model.AssetCatalog
	if err := dec.Decode(&c); err != nil {
		return model.AssetCatalog{}, fmt.Errorf("decode asset catalog: %w", err)
	}
	if err := Validate(c); err != nil {
		return model.AssetCatalog{}, err
	}
	return normalize(c), nil
}

// Validate rejects empty symbols.
func Validate(c model.AssetCatalog) error {
	for _, class := range model.AssetClasses() {
		for sym := range c.Entries(class) {
			if sym == "" {
				return fmt.Errorf("asset catalog: empty symbol in %s", class)
			}
		}
	}
	return nil
}

func normalize(c model.AssetCatalog) model.AssetCatalog {
	if c.Crypto == nil {
		c.Crypto = model.AssetCatalogEntries{}
	}
	if c.Nasdaq == nil {
		c.Nasdaq = model.AssetCatalogEntries{}
	}
	if c.Forex == nil {
		c.Forex = model.AssetCatalogEntries{}
	}
	if c.Bist == nil {
		c.Bist = model.AssetCatalogEntries{}
	}
	return c
}
