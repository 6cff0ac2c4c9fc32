package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

func TestCreateRelationship(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, "write-ahead logging")
	b := mustCreate(t, store, "crash recovery")

	rel := &types.Relationship{
		SourceID: a.ID,
		TargetID: b.ID,
		Type:     types.RelBuildsUpon,
		Strength: 0.85,
		Metadata: map[string]string{"origin": "manual"},
	}
	if err := store.CreateRelationship(ctx, rel); err != nil {
		t.Fatalf("CreateRelationship() failed: %v", err)
	}
	if rel.ID == "" {
		t.Fatal("CreateRelationship() left ID empty")
	}

	rels, err := store.RelationshipsForMemory(ctx, a.ID)
	if err != nil {
		t.Fatalf("RelationshipsForMemory() failed: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("RelationshipsForMemory() = %d rels, want 1", len(rels))
	}
	got := rels[0]
	if got.TargetID != b.ID || got.Type != types.RelBuildsUpon || got.Strength != 0.85 {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.Metadata["origin"] != "manual" {
		t.Errorf("Metadata: got %v", got.Metadata)
	}
}

func TestCreateRelationshipUnknownEndpoint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, "real")

	err := store.CreateRelationship(ctx, &types.Relationship{
		SourceID: a.ID,
		TargetID: "mem:ghost",
		Type:     types.RelRelatesTo,
		Strength: 0.5,
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("CreateRelationship(unknown target) = %v, want ErrNotFound", err)
	}
}

func TestCreateRelationshipValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, "a")
	b := mustCreate(t, store, "b")

	cases := []struct {
		name string
		rel  *types.Relationship
	}{
		{"self edge", &types.Relationship{SourceID: a.ID, TargetID: a.ID, Type: types.RelRelatesTo, Strength: 0.5}},
		{"strength above one", &types.Relationship{SourceID: a.ID, TargetID: b.ID, Type: types.RelRelatesTo, Strength: 1.5}},
		{"negative strength", &types.Relationship{SourceID: a.ID, TargetID: b.ID, Type: types.RelRelatesTo, Strength: -0.1}},
		{"empty type", &types.Relationship{SourceID: a.ID, TargetID: b.ID, Strength: 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.CreateRelationship(ctx, tc.rel)
			if !errors.Is(err, storage.ErrInvalidInput) {
				t.Errorf("CreateRelationship() = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRelationshipsForMemoryOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hub := mustCreate(t, store, "hub")
	weak := mustCreate(t, store, "weak neighbor")
	strong := mustCreate(t, store, "strong neighbor")

	for _, r := range []*types.Relationship{
		{SourceID: hub.ID, TargetID: weak.ID, Type: types.RelRelatesTo, Strength: 0.2},
		{SourceID: hub.ID, TargetID: strong.ID, Type: types.RelRelatesTo, Strength: 0.9},
	} {
		if err := store.CreateRelationship(ctx, r); err != nil {
			t.Fatalf("CreateRelationship() failed: %v", err)
		}
	}

	rels, err := store.RelationshipsForMemory(ctx, hub.ID)
	if err != nil {
		t.Fatalf("RelationshipsForMemory() failed: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("got %d rels, want 2", len(rels))
	}
	if rels[0].Strength < rels[1].Strength {
		t.Errorf("not ordered by strength desc: %v then %v", rels[0].Strength, rels[1].Strength)
	}
}

func TestRelationshipsForMemoryIncludesIncoming(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, "a")
	b := mustCreate(t, store, "b")

	if err := store.CreateRelationship(ctx, &types.Relationship{
		SourceID: a.ID, TargetID: b.ID, Type: types.RelReferences, Strength: 0.6,
	}); err != nil {
		t.Fatalf("CreateRelationship() failed: %v", err)
	}

	rels, err := store.RelationshipsForMemory(ctx, b.ID)
	if err != nil {
		t.Fatalf("RelationshipsForMemory() failed: %v", err)
	}
	if len(rels) != 1 || rels[0].SourceID != a.ID {
		t.Fatalf("incoming edge not returned for target: %v", rels)
	}
}

func TestDeleteRelationship(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, "a")
	b := mustCreate(t, store, "b")

	rel := &types.Relationship{SourceID: a.ID, TargetID: b.ID, Type: types.RelRelatesTo, Strength: 0.5}
	if err := store.CreateRelationship(ctx, rel); err != nil {
		t.Fatalf("CreateRelationship() failed: %v", err)
	}

	if err := store.DeleteRelationship(ctx, rel.ID); err != nil {
		t.Fatalf("DeleteRelationship() failed: %v", err)
	}

	if err := store.DeleteRelationship(ctx, rel.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("DeleteRelationship(gone) = %v, want ErrNotFound", err)
	}
}
