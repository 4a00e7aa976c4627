package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists documents as JSONB rows in a single table keyed by
// (kind, id). It is the backend for shared deployments where several
// dashboard instances read the same ledger.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to Postgres and creates the documents table if needed.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		doc JSONB NOT NULL,
		PRIMARY KEY (kind, id)
	);`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// List returns all documents of a kind.
func (s *PostgresStore) List(ctx context.Context, kind Kind) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM documents WHERE kind = $1`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", kind, err)
	}
	defer rows.Close()

	var result []json.RawMessage
	for rows.Next() {
		var doc json.RawMessage
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s document: %w", kind, err)
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s documents: %w", kind, err)
	}
	if result == nil {
		result = []json.RawMessage{}
	}
	return result, nil
}

// Get returns the document for an id.
func (s *PostgresStore) Get(ctx context.Context, kind Kind, id string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM documents WHERE kind = $1 AND id = $2`,
		string(kind), id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document %s/%s: %w", kind, id, err)
	}
	return doc, nil
}

// Put creates or replaces the document for an id.
func (s *PostgresStore) Put(ctx context.Context, kind Kind, id string, doc json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (kind, id, doc) VALUES ($1, $2, $3)
		ON CONFLICT (kind, id) DO UPDATE SET doc = EXCLUDED.doc`,
		string(kind), id, doc)
	if err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", kind, id, err)
	}
	return nil
}

// Delete removes the document for an id.
func (s *PostgresStore) Delete(ctx context.Context, kind Kind, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE kind = $1 AND id = $2`, string(kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
