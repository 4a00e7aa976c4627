package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type testDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// backends returns every store implementation that can run without external
// services, so the contract tests cover them all.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			doc, _ := json.Marshal(testDoc{ID: "r1", Name: "GPU-A"})
			if err := s.Put(ctx, KindResource, "r1", doc); err != nil {
				t.Fatalf("put should succeed: %v", err)
			}

			got, err := GetRecord[testDoc](ctx, s, KindResource, "r1")
			if err != nil {
				t.Fatalf("get should succeed: %v", err)
			}
			if got.Name != "GPU-A" {
				t.Errorf("expected name GPU-A, got %s", got.Name)
			}

			// Put replaces.
			if err := PutRecord(ctx, s, KindResource, "r1", testDoc{ID: "r1", Name: "GPU-B"}); err != nil {
				t.Fatalf("put should succeed: %v", err)
			}
			got, err = GetRecord[testDoc](ctx, s, KindResource, "r1")
			if err != nil {
				t.Fatalf("get should succeed: %v", err)
			}
			if got.Name != "GPU-B" {
				t.Errorf("expected replaced name GPU-B, got %s", got.Name)
			}

			if err := s.Delete(ctx, KindResource, "r1"); err != nil {
				t.Fatalf("delete should succeed: %v", err)
			}
			if _, err := s.Get(ctx, KindResource, "r1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.Delete(ctx, KindResource, "r1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound on double delete, got %v", err)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := s.List(ctx, KindBooking)
			if err != nil {
				t.Fatalf("list of empty kind should succeed: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("expected empty list, got %d", len(empty))
			}

			for _, id := range []string{"b1", "b2", "b3"} {
				if err := PutRecord(ctx, s, KindBooking, id, testDoc{ID: id}); err != nil {
					t.Fatalf("put should succeed: %v", err)
				}
			}
			// Another kind must not leak in.
			if err := PutRecord(ctx, s, KindCost, "c1", testDoc{ID: "c1"}); err != nil {
				t.Fatalf("put should succeed: %v", err)
			}

			docs, err := ListRecords[testDoc](ctx, s, KindBooking)
			if err != nil {
				t.Fatalf("list should succeed: %v", err)
			}
			if len(docs) != 3 {
				t.Errorf("expected 3 bookings, got %d", len(docs))
			}
		})
	}
}

func TestStore_KindsAreIsolated(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := PutRecord(ctx, s, KindResource, "same-id", testDoc{Name: "resource"}); err != nil {
				t.Fatalf("put should succeed: %v", err)
			}
			if err := PutRecord(ctx, s, KindQuota, "same-id", testDoc{Name: "quota"}); err != nil {
				t.Fatalf("put should succeed: %v", err)
			}

			r, err := GetRecord[testDoc](ctx, s, KindResource, "same-id")
			if err != nil {
				t.Fatalf("get should succeed: %v", err)
			}
			q, err := GetRecord[testDoc](ctx, s, KindQuota, "same-id")
			if err != nil {
				t.Fatalf("get should succeed: %v", err)
			}
			if r.Name != "resource" || q.Name != "quota" {
				t.Error("kinds must not share documents")
			}
		})
	}
}

func TestFileStore_RejectsTraversalIDs(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	ctx := context.Background()

	for _, id := range []string{"", "../evil", "a/b", `a\b`} {
		if err := fs.Put(ctx, KindResource, id, json.RawMessage(`{}`)); err == nil {
			t.Errorf("id %q should be rejected", id)
		}
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	if err := PutRecord(ctx, fs, KindCredential, "c1", testDoc{ID: "c1", Name: "key"}); err != nil {
		t.Fatalf("put should succeed: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("failed to reopen file store: %v", err)
	}
	got, err := GetRecord[testDoc](ctx, reopened, KindCredential, "c1")
	if err != nil {
		t.Fatalf("get should succeed: %v", err)
	}
	if got.Name != "key" {
		t.Errorf("expected persisted document, got %+v", got)
	}
}
