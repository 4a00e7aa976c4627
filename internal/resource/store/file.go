package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists one JSON file per document under <dir>/<kind>/<id>.json.
// Writes go through a temp file and rename so a crash never leaves a
// half-written document behind.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore creates the base directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// List returns all documents of a kind.
func (s *FileStore) List(ctx context.Context, kind Kind) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.kindDir(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read %s directory: %w", kind, err)
	}

	result := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		doc, err := os.ReadFile(filepath.Join(s.kindDir(kind), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", entry.Name(), err)
		}
		result = append(result, doc)
	}
	return result, nil
}

// Get returns the document for an id.
func (s *FileStore) Get(ctx context.Context, kind Kind, id string) (json.RawMessage, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := os.ReadFile(s.docPath(kind, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document %s/%s: %w", kind, id, err)
	}
	return doc, nil
}

// Put creates or replaces the document for an id.
func (s *FileStore) Put(ctx context.Context, kind Kind, id string, doc json.RawMessage) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.kindDir(kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	tmp, err := os.CreateTemp(dir, "."+id+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s/%s: %w", kind, id, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document %s/%s: %w", kind, id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close document %s/%s: %w", kind, id, err)
	}
	if err := os.Rename(tmpName, s.docPath(kind, id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist document %s/%s: %w", kind, id, err)
	}
	return nil
}

// Delete removes the document for an id.
func (s *FileStore) Delete(ctx context.Context, kind Kind, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.docPath(kind, id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete document %s/%s: %w", kind, id, err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) kindDir(kind Kind) string {
	return filepath.Join(s.dir, string(kind))
}

func (s *FileStore) docPath(kind Kind, id string) string {
	return filepath.Join(s.kindDir(kind), id+".json")
}

// validateID rejects ids that would escape the kind directory.
func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("invalid document id %q", id)
	}
	return nil
}
