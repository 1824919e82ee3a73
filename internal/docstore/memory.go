package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	cols map[string]map[string]Document
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cols: make(map[string]map[string]Document),
		now:  time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string, dst any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	s.mu.RLock()
	doc, ok := s.cols[collection][id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return doc.Decode(dst)
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, v any, opts ...SetOption) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	o := applySetOptions(opts)
	data, patch, err := encode(v, o.merge)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.cols[collection]
	if !ok {
		col = make(map[string]Document)
		s.cols[collection] = col
	}
	if existing, ok := col[id]; ok && o.merge {
		data, err = mergeInto(existing.Data, patch)
		if err != nil {
			return err
		}
	}
	col[id] = Document{ID: id, Data: json.RawMessage(data), UpdatedAt: s.now().UTC()}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cols[collection], id)
	return nil
}

func (s *MemoryStore) RecursiveDelete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	prefix := subtreePrefix(collection, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cols[collection], id)
	for name := range s.cols {
		if strings.HasPrefix(name, prefix) {
			delete(s.cols, name)
		}
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.ListAfter(ctx, collection, "")
}

func (s *MemoryStore) ListAfter(ctx context.Context, collection, afterID string) ([]Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.cols[collection]))
	for id, doc := range s.cols[collection] {
		if id > afterID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
