// Package store provides the pluggable document store behind the resource manager.
//
// Every entity is persisted as one JSON document addressed by (kind, id). A
// backend only has to offer read-all-in-kind, read-by-id, write-by-id
// (create-or-replace) and delete-by-id; everything else lives in the service
// layer.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names a document collection (a directory, KV prefix or table partition).
type Kind string

const (
	KindResource   Kind = "resources"
	KindBooking    Kind = "bookings"
	KindCost       Kind = "costs"
	KindQuota      Kind = "quotas"
	KindCredential Kind = "credentials"
)

// ErrNotFound is returned by Get/Delete when no document exists for the id.
var ErrNotFound = errors.New("document not found")

// Store is the contract every backend implements.
type Store interface {
	// List returns all documents of a kind, in unspecified order.
	List(ctx context.Context, kind Kind) ([]json.RawMessage, error)
	// Get returns the document for an id, or ErrNotFound.
	Get(ctx context.Context, kind Kind, id string) (json.RawMessage, error)
	// Put creates or replaces the document for an id.
	Put(ctx context.Context, kind Kind, id string, doc json.RawMessage) error
	// Delete removes the document for an id, or returns ErrNotFound.
	Delete(ctx context.Context, kind Kind, id string) error
	// Close releases backend resources (connections, file handles).
	Close() error
}

// PutRecord marshals a typed record and writes it under (kind, id).
func PutRecord(ctx context.Context, s Store, kind Kind, id string, record interface{}) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", kind, err)
	}
	return s.Put(ctx, kind, id, doc)
}

// GetRecord reads the document for (kind, id) into a typed record.
func GetRecord[T any](ctx context.Context, s Store, kind Kind, id string) (*T, error) {
	doc, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	var record T
	if err := json.Unmarshal(doc, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s document %s: %w", kind, id, err)
	}
	return &record, nil
}

// ListRecords reads all documents of a kind into typed records.
func ListRecords[T any](ctx context.Context, s Store, kind Kind) ([]*T, error) {
	docs, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	records := make([]*T, 0, len(docs))
	for _, doc := range docs {
		var record T
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s document: %w", kind, err)
		}
		records = append(records, &record)
	}
	return records, nil
}
