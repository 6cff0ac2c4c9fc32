package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/scrypster/memgraph/internal/storage"
)

func TestUpsertAndQuery(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	vectors := map[string][]float32{
		"vec:a": {1, 0, 0},
		"vec:b": {0.9, 0.1, 0}, // close to a
		"vec:c": {0, 0, 1},     // orthogonal
	}
	for id, v := range vectors {
		if err := idx.Upsert(ctx, id, v); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", id, err)
		}
	}

	got, err := idx.Query(ctx, []float32{1, 0, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query() = %d candidates, want 2 (orthogonal filtered): %v", len(got), got)
	}
	if got[0].ID != "vec:a" || got[1].ID != "vec:b" {
		t.Errorf("Query() order = %v, want vec:a then vec:b", got)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not descending: %v", got)
	}
	if got[0].Score < 0.999 {
		t.Errorf("exact match score = %v, want ~1.0", got[0].Score)
	}
}

func TestQueryTopK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	for _, id := range []string{"vec:1", "vec:2", "vec:3", "vec:4"} {
		if err := idx.Upsert(ctx, id, []float32{1, 0}); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
	}

	got, err := idx.Query(ctx, []float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Query(topK=2) = %d candidates, want 2", len(got))
	}
}

func TestUpsertReplaces(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "vec:x", []float32{1, 0}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := idx.Upsert(ctx, "vec:x", []float32{0, 1}); err != nil {
		t.Fatalf("Upsert() replace failed: %v", err)
	}

	got, err := idx.Query(ctx, []float32{0, 1}, 1, 0.9)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "vec:x" {
		t.Fatalf("replaced vector not found: %v", got)
	}
	if idx.Len() != 1 {
		t.Errorf("Len() = %d after replace, want 1", idx.Len())
	}
}

func TestDelete(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "vec:x", []float32{1, 0}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := idx.Delete(ctx, "vec:x"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	// Deleting again is a no-op.
	if err := idx.Delete(ctx, "vec:x"); err != nil {
		t.Fatalf("Delete() of absent ID failed: %v", err)
	}

	got, err := idx.Query(ctx, []float32{1, 0}, 10, 0)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query() after delete = %v, want empty", got)
	}
}

func TestUpsertValidation(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "", []float32{1}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Upsert(empty ID) = %v, want ErrInvalidInput", err)
	}
	if err := idx.Upsert(ctx, "vec:x", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Upsert(nil vector) = %v, want ErrInvalidInput", err)
	}
	if err := idx.Upsert(ctx, "vec:x", []float32{0, 0, 0}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Upsert(zero vector) = %v, want ErrInvalidInput", err)
	}
}

func TestQuerySkipsMismatchedDimensions(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "vec:2d", []float32{1, 0}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := idx.Upsert(ctx, "vec:3d", []float32{1, 0, 0}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	got, err := idx.Query(ctx, []float32{1, 0, 0}, 10, 0)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "vec:3d" {
		t.Errorf("Query() = %v, want only vec:3d", got)
	}
}
