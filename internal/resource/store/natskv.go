package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSKVStore persists documents in a JetStream key-value bucket. Keys are
// "<kind>.<id>" so one bucket holds every entity kind.
type NATSKVStore struct {
	kv nats.KeyValue
}

// Ensure NATSKVStore implements Store
var _ Store = (*NATSKVStore)(nil)

// NewNATSKVStore binds to (or creates) the named bucket on the given connection.
func NewNATSKVStore(nc *nats.Conn, bucket string) (*NATSKVStore, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "missionctl resource manager documents",
			History:     1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
	}

	return &NATSKVStore{kv: kv}, nil
}

// List returns all documents of a kind.
func (s *NATSKVStore) List(ctx context.Context, kind Kind) ([]json.RawMessage, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to list keys in bucket: %w", err)
	}

	prefix := string(kind) + "."
	result := make([]json.RawMessage, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := s.kv.Get(key)
		if err != nil {
			if errors.Is(err, nats.ErrKeyNotFound) {
				// Deleted between Keys() and Get(); skip.
				continue
			}
			return nil, fmt.Errorf("failed to read key %s: %w", key, err)
		}
		result = append(result, entry.Value())
	}
	return result, nil
}

// Get returns the document for an id.
func (s *NATSKVStore) Get(ctx context.Context, kind Kind, id string) (json.RawMessage, error) {
	entry, err := s.kv.Get(s.key(kind, id))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document %s/%s: %w", kind, id, err)
	}
	return entry.Value(), nil
}

// Put creates or replaces the document for an id.
func (s *NATSKVStore) Put(ctx context.Context, kind Kind, id string, doc json.RawMessage) error {
	if _, err := s.kv.Put(s.key(kind, id), doc); err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", kind, id, err)
	}
	return nil
}

// Delete removes the document for an id.
func (s *NATSKVStore) Delete(ctx context.Context, kind Kind, id string) error {
	key := s.key(kind, id)
	if _, err := s.kv.Get(key); err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read document %s/%s: %w", kind, id, err)
	}
	if err := s.kv.Delete(key); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", kind, id, err)
	}
	return nil
}

// Close is a no-op; the NATS connection is owned by the event bus.
func (s *NATSKVStore) Close() error {
	return nil
}

func (s *NATSKVStore) key(kind Kind, id string) string {
	return string(kind) + "." + id
}
