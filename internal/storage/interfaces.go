// Package storage provides composable storage interfaces for the memgraph
// system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. The SQLite backend in
// internal/storage/sqlite implements all of them on a single handle.
package storage

import (
	"context"

	"github.com/scrypster/memgraph/pkg/types"
)

// MemoryStore provides CRUD operations and filtered lookup for memories.
type MemoryStore interface {
	// Create inserts a new memory. Callers assign a fresh prefixed ID;
	// the content hash is derived from content when left empty.
	Create(ctx context.Context, memory *types.Memory) error

	// Get retrieves a memory by ID regardless of status. Merged memories
	// remain readable by ID for audit purposes.
	// Returns ErrNotFound if the memory doesn't exist.
	Get(ctx context.Context, id string) (*types.Memory, error)

	// Find retrieves memories matching the filter, newest first, along with
	// the total match count before pagination.
	Find(ctx context.Context, filter MemoryFilter) ([]types.Memory, int, error)

	// Update modifies an existing memory and refreshes updated_at.
	// Status transitions into StatusMerged are rejected with ErrInvalidInput;
	// only the merge transaction may mark memories merged.
	// Returns ErrNotFound if the memory doesn't exist.
	Update(ctx context.Context, memory *types.Memory) error

	// Delete hard-deletes a memory and, in the same transaction, all
	// relationships and concept links that reference it. Returns ErrConflict
	// when the memory is recorded as the surviving primary of a merge audit,
	// since removing it would break the audit's referential meaning.
	Delete(ctx context.Context, id string) error

	// SetVectorID records the external vector index handle once the async
	// indexer has embedded the memory.
	SetVectorID(ctx context.Context, id, vectorID string) error

	// IncrementAccessCount atomically increments access_count and updates
	// last_accessed_at for the given memory ID.
	IncrementAccessCount(ctx context.Context, id string) error

	// ListUnindexed returns up to limit active memories that have no vector
	// index handle yet, oldest first. Used by the indexer and reindex tool.
	ListUnindexed(ctx context.Context, limit int) ([]types.Memory, error)

	// CountByStatus returns the number of memories per lifecycle status.
	CountByStatus(ctx context.Context) (map[types.MemoryStatus]int, error)

	// Close releases any resources held by the store.
	Close() error
}

// ConceptStore manages the concept registry and its many-to-many link to
// memories.
type ConceptStore interface {
	// FindOrCreate returns the concept with the given name, creating it if
	// absent. Idempotent by name: a second call with the same name returns
	// the existing concept unchanged.
	FindOrCreate(ctx context.Context, name string, conceptType types.ConceptType, confidence float64) (*types.Concept, error)

	// LinkToMemory attaches a concept to a memory. Linking the same pair
	// twice is a no-op.
	LinkToMemory(ctx context.Context, memoryID, conceptID string) error

	// UnlinkAllFromMemory removes every concept link for the given memory.
	UnlinkAllFromMemory(ctx context.Context, memoryID string) error

	// ListForMemory returns the concepts attached to a memory, by name.
	ListForMemory(ctx context.Context, memoryID string) ([]types.Concept, error)

	// DistributionByType returns the number of concepts per concept type.
	DistributionByType(ctx context.Context) (map[types.ConceptType]int, error)
}

// RelationshipStore manages the typed edge list between memories.
type RelationshipStore interface {
	// CreateRelationship inserts a new edge. Both endpoints must exist;
	// strength must already be within [0,1] (validated via types.Relationship).
	CreateRelationship(ctx context.Context, rel *types.Relationship) error

	// RelationshipsForMemory returns all edges where the memory is source
	// or target, ordered by strength descending then creation time.
	RelationshipsForMemory(ctx context.Context, memoryID string) ([]types.Relationship, error)

	// DeleteRelationship removes an edge by ID.
	DeleteRelationship(ctx context.Context, id string) error

	// CountRelationships returns the total number of edges.
	CountRelationships(ctx context.Context) (int, error)
}

// MergeStore applies merge plans atomically and exposes the audit trail.
type MergeStore interface {
	// ApplyMerge executes the merge plan as a single transaction: insert the
	// new memory, attach its concepts, rewire every relationship touching an
	// input memory to the new memory, mark all inputs merged, and append the
	// audit row. If any input is already merged (or disappears) by the time
	// the transaction runs, ApplyMerge fails with ErrConflict and leaves no
	// partial state.
	ApplyMerge(ctx context.Context, plan MergePlan) (*types.Memory, *types.MergeAudit, error)

	// GetAudit retrieves a merge audit record by ID.
	GetAudit(ctx context.Context, id string) (*types.MergeAudit, error)

	// ListAuditsForMemory returns audits that reference the memory either as
	// the surviving primary or in the merged set, newest first.
	ListAuditsForMemory(ctx context.Context, memoryID string) ([]types.MergeAudit, error)

	// CountAudits returns the total number of merge audit records.
	CountAudits(ctx context.Context) (int, error)
}
