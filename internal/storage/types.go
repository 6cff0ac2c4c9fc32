package storage

import (
	"errors"

	"github.com/scrypster/memgraph/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates that the targeted resource is already merged,
	// was concurrently modified, or is pinned by a merge audit.
	ErrConflict = errors.New("conflicting state")

	// ErrDependency indicates that an external collaborator (embedding
	// provider or vector index) is unreachable or timed out. Callers may
	// retry.
	ErrDependency = errors.New("external dependency unavailable")
)

// MemoryFilter selects memories for Find operations. Zero-valued fields are
// not applied.
type MemoryFilter struct {
	// ContentHash filters to memories with this exact content hash. This is
	// how callers implement opt-in dedup checks before creating.
	ContentHash string

	// Status filters by lifecycle status.
	Status types.MemoryStatus

	// CreatedBy filters by the creating user or agent.
	CreatedBy string

	// Limit is the maximum number of results (default 20, max 100).
	Limit int

	// Offset is the number of results to skip.
	Offset int
}

// Normalize applies defaults and bounds to the filter.
func (f *MemoryFilter) Normalize() {
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// MergePlan is the fully-resolved input to MergeStore.ApplyMerge. The merge
// engine computes the plan as a pure function of the input memories; the
// store executes it transactionally.
type MergePlan struct {
	// NewMemory is the consolidated memory to insert, complete with ID,
	// content, content hash, importance, context, and provenance. Its status
	// must be StatusActive.
	NewMemory *types.Memory

	// ConceptIDs are the concepts to link to the new memory (already the
	// union computed by the strategy).
	ConceptIDs []string

	// InputIDs are all original memories (primary and secondaries) to mark
	// merged. Relationships touching any of them are rewired to NewMemory.
	InputIDs []string

	// Strategy is recorded on the audit row.
	Strategy types.MergeStrategy

	// CreatedBy is the merge initiator, recorded on the audit row.
	CreatedBy string
}
