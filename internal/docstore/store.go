package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is a collection-oriented JSON document store.
type Store interface {
	// Get decodes the document into dst. Returns ErrNotFound when absent.
	Get(ctx context.Context, collection, id string, dst any) error

	// Set writes v as the document. With Merge() nested objects are merged
	// into the existing document instead of replacing it.
	Set(ctx context.Context, collection, id string, v any, opts ...SetOption) error

	// Delete removes a single document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// RecursiveDelete removes the document and every sub-collection under it.
	RecursiveDelete(ctx context.Context, collection, id string) error

	// List returns every document in the collection ordered by id.
	List(ctx context.Context, collection string) ([]Document, error)

	// ListAfter returns documents with id > afterID ordered by id.
	ListAfter(ctx context.Context, collection, afterID string) ([]Document, error)

	Ping(ctx context.Context) error
	Close() error
}

// Document is a stored document.
type Document struct {
	ID        string
	Data      json.RawMessage
	UpdatedAt time.Time
}

// Decode unmarshals the document data into dst.
func (d Document) Decode(dst any) error {
	if err := json.Unmarshal(d.Data, dst); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// SetOption configures a Set call.
type SetOption func(*setOptions)

type setOptions struct {
	merge bool
}

// Merge deep-merges the written value into the existing document.
func Merge() SetOption {
	return func(o *setOptions) {
		o.merge = true
	}
}

func applySetOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Path returns the collection path of a sub-collection under a document.
func Path(collection, id, child string) string {
	return collection + "/" + id + "/" + child
}

// subtreePrefix is the prefix shared by every sub-collection of a document.
func subtreePrefix(collection, id string) string {
	return collection + "/" + id + "/"
}

func validateKey(collection, id string) error {
	if collection == "" {
		return errors.New("collection is required")
	}
	if id == "" {
		return errors.New("document id is required")
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("document id %q must not contain '/'", id)
	}
	return nil
}

// encode marshals v for storage. Merge writes require a JSON object.
func encode(v any, merge bool) ([]byte, map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode document: %w", err)
	}
	if !merge {
		return data, nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, nil, errors.New("merge requires a JSON object")
	}
	return data, obj, nil
}

// mergeInto merges patch into the stored document bytes and returns the result.
func mergeInto(existing []byte, patch map[string]any) ([]byte, error) {
	var base map[string]any
	if err := json.Unmarshal(existing, &base); err != nil || base == nil {
		// A non-object document is replaced by the patch.
		base = make(map[string]any)
	}
	DeepMerge(base, patch)
	data, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode merged document: %w", err)
	}
	return data, nil
}
