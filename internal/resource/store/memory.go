package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps all documents in process memory. Used by tests and
// ephemeral runs (storage.backend=memory).
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[Kind]map[string]json.RawMessage
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[Kind]map[string]json.RawMessage)}
}

// List returns all documents of a kind.
func (s *MemoryStore) List(ctx context.Context, kind Kind) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]json.RawMessage, 0, len(s.docs[kind]))
	for _, doc := range s.docs[kind] {
		result = append(result, doc)
	}
	return result, nil
}

// Get returns the document for an id.
func (s *MemoryStore) Get(ctx context.Context, kind Kind, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Put creates or replaces the document for an id.
func (s *MemoryStore) Put(ctx context.Context, kind Kind, id string, doc json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[kind] == nil {
		s.docs[kind] = make(map[string]json.RawMessage)
	}
	// Copy so later caller mutations of the slice cannot corrupt the store.
	stored := make(json.RawMessage, len(doc))
	copy(stored, doc)
	s.docs[kind][id] = stored
	return nil
}

// Delete removes the document for an id.
func (s *MemoryStore) Delete(ctx context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[kind][id]; !ok {
		return ErrNotFound
	}
	delete(s.docs[kind], id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
