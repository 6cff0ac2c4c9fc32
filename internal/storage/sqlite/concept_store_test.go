package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

func TestFindOrCreateIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.FindOrCreate(ctx, "distributed-systems", types.ConceptTypeTopic, 0.8)
	if err != nil {
		t.Fatalf("FindOrCreate() failed: %v", err)
	}

	second, err := store.FindOrCreate(ctx, "distributed-systems", types.ConceptTypeTopic, 0.5)
	if err != nil {
		t.Fatalf("FindOrCreate() second call failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("FindOrCreate created a duplicate: %s vs %s", first.ID, second.ID)
	}
	// Existing concepts keep their original confidence.
	if second.Confidence != 0.8 {
		t.Errorf("Confidence: got %v, want 0.8", second.Confidence)
	}
}

func TestFindOrCreateRejectsInvalidType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindOrCreate(context.Background(), "thing", "gadget", 0.5)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("FindOrCreate(invalid type) = %v, want ErrInvalidInput", err)
	}
}

func TestLinkToMemoryIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := mustCreate(t, store, "raft leader election")
	concept, err := store.FindOrCreate(ctx, "consensus", types.ConceptTypeTopic, 0.9)
	if err != nil {
		t.Fatalf("FindOrCreate() failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.LinkToMemory(ctx, mem.ID, concept.ID); err != nil {
			t.Fatalf("LinkToMemory() call %d failed: %v", i, err)
		}
	}

	concepts, err := store.ListForMemory(ctx, mem.ID)
	if err != nil {
		t.Fatalf("ListForMemory() failed: %v", err)
	}
	if len(concepts) != 1 {
		t.Fatalf("ListForMemory() = %d concepts after repeated linking, want 1", len(concepts))
	}
	if concepts[0].Name != "consensus" {
		t.Errorf("concept name: got %q, want %q", concepts[0].Name, "consensus")
	}
}

func TestLinkToMemoryUnknownMemory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	concept, err := store.FindOrCreate(ctx, "orphan", types.ConceptTypeTopic, 0.5)
	if err != nil {
		t.Fatalf("FindOrCreate() failed: %v", err)
	}

	err = store.LinkToMemory(ctx, "mem:missing", concept.ID)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("LinkToMemory(unknown memory) = %v, want ErrNotFound", err)
	}
}

func TestUnlinkAllFromMemory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := mustCreate(t, store, "sharding notes")
	for _, name := range []string{"sharding", "postgres"} {
		c, err := store.FindOrCreate(ctx, name, types.ConceptTypeTopic, 0.7)
		if err != nil {
			t.Fatalf("FindOrCreate(%s) failed: %v", name, err)
		}
		if err := store.LinkToMemory(ctx, mem.ID, c.ID); err != nil {
			t.Fatalf("LinkToMemory(%s) failed: %v", name, err)
		}
	}

	if err := store.UnlinkAllFromMemory(ctx, mem.ID); err != nil {
		t.Fatalf("UnlinkAllFromMemory() failed: %v", err)
	}

	concepts, err := store.ListForMemory(ctx, mem.ID)
	if err != nil {
		t.Fatalf("ListForMemory() failed: %v", err)
	}
	if len(concepts) != 0 {
		t.Errorf("ListForMemory() = %d concepts after unlink, want 0", len(concepts))
	}
}

func TestDistributionByType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	names := map[string]types.ConceptType{
		"alice":   types.ConceptTypePerson,
		"bob":     types.ConceptTypePerson,
		"caching": types.ConceptTypeTopic,
	}
	for name, ct := range names {
		if _, err := store.FindOrCreate(ctx, name, ct, 0.5); err != nil {
			t.Fatalf("FindOrCreate(%s) failed: %v", name, err)
		}
	}

	dist, err := store.DistributionByType(ctx)
	if err != nil {
		t.Fatalf("DistributionByType() failed: %v", err)
	}
	if dist[types.ConceptTypePerson] != 2 || dist[types.ConceptTypeTopic] != 1 {
		t.Errorf("DistributionByType() = %v", dist)
	}
}
