package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// DefaultMergeSeparator joins source contents when the request does not
// provide a separator.
const DefaultMergeSeparator = "\n\n"

// MergeRequest describes a merge of two or more memories into one.
type MergeRequest struct {
	// SourceMemoryIDs are the memories to merge, in order. At least two
	// distinct IDs are required.
	SourceMemoryIDs []string

	// Strategy selects how the consolidated content is computed.
	Strategy types.MergeStrategy

	// PrimaryMemoryID designates the primary source and must be one of
	// SourceMemoryIDs. Required for replace; combine and append default
	// to the first source when it is omitted.
	PrimaryMemoryID string

	// Separator joins contents for combine and append. Empty means the
	// default of a blank line.
	Separator string

	// Context entries are set on the consolidated memory, overriding any
	// conflicting entries inherited from the sources.
	Context map[string]string

	// CreatedBy is recorded on the consolidated memory and the audit.
	CreatedBy string
}

// MergeResult is the outcome of a successful merge.
type MergeResult struct {
	Memory types.Memory     `json:"memory"`
	Audit  types.MergeAudit `json:"audit"`
}

// Merge consolidates the source memories into one new memory according to the
// strategy:
//
//   - combine: primary's content first, the rest in source order, exact
//     duplicates dropped
//   - replace: the primary's content and importance alone
//   - append:  the primary's content first, the rest appended in order
//
// The new memory takes the maximum importance across sources (replace keeps
// the primary's) and the union of their concepts. Sources flip to merged, their relationships are rewired to
// the new memory, and an audit record captures what was merged. The whole
// mutation is atomic; a failure leaves every source untouched.
func (e *Engine) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	sources, err := e.resolveSources(ctx, req)
	if err != nil {
		return nil, err
	}

	primary, err := pickPrimary(sources, req)
	if err != nil {
		return nil, err
	}

	separator := req.Separator
	if separator == "" {
		separator = DefaultMergeSeparator
	}

	content, err := mergeContent(sources, primary, req.Strategy, separator)
	if err != nil {
		return nil, err
	}

	// Replace keeps the primary's importance intact; the other strategies
	// take the maximum across sources.
	importance := maxImportance(sources)
	if req.Strategy == types.StrategyReplace {
		importance = primary.Importance
	}

	newMem := &types.Memory{
		ID:         "mem:" + uuid.NewString(),
		Content:    content,
		Importance: importance,
		Status:     types.StatusActive,
		Context:    mergeContext(sources, primary, req.Context),
		CreatedBy:  req.CreatedBy,
	}

	conceptIDs, err := e.conceptUnion(ctx, sources)
	if err != nil {
		return nil, err
	}

	merged, audit, err := e.store.ApplyMerge(ctx, storage.MergePlan{
		NewMemory:  newMem,
		ConceptIDs: conceptIDs,
		InputIDs:   req.SourceMemoryIDs,
		Strategy:   req.Strategy,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	// Drop source vectors so merged memories stop matching searches. Best
	// effort: the searcher filters merged results anyway, and the new
	// memory gets indexed asynchronously.
	for _, src := range sources {
		if src.VectorID == "" {
			continue
		}
		if err := e.index.Delete(ctx, src.VectorID); err != nil {
			log.Printf("engine: failed to drop vector for merged memory %s: %v", src.ID, err)
		}
	}

	return &MergeResult{Memory: *merged, Audit: *audit}, nil
}

// resolveSources validates the request and loads every source memory.
func (e *Engine) resolveSources(ctx context.Context, req MergeRequest) ([]*types.Memory, error) {
	if !types.IsValidMergeStrategy(req.Strategy) {
		return nil, fmt.Errorf("%w: invalid merge strategy: %q", storage.ErrInvalidInput, req.Strategy)
	}

	seen := make(map[string]bool, len(req.SourceMemoryIDs))
	for _, id := range req.SourceMemoryIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty source memory ID", storage.ErrInvalidInput)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate source memory ID %s", storage.ErrInvalidInput, id)
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		return nil, fmt.Errorf("%w: at least two memories required", storage.ErrInvalidInput)
	}

	sources := make([]*types.Memory, 0, len(req.SourceMemoryIDs))
	for _, id := range req.SourceMemoryIDs {
		mem, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("source memory %s: %w", id, err)
		}
		if mem.IsMerged() {
			return nil, fmt.Errorf("%w: source memory %s is already merged", storage.ErrConflict, id)
		}
		sources = append(sources, mem)
	}
	return sources, nil
}

// pickPrimary resolves the primary source. Replace requires an explicit
// primary; combine and append default to the first source.
func pickPrimary(sources []*types.Memory, req MergeRequest) (*types.Memory, error) {
	if req.PrimaryMemoryID == "" {
		if req.Strategy == types.StrategyReplace {
			return nil, fmt.Errorf("%w: strategy %s requires a primary memory",
				storage.ErrInvalidInput, req.Strategy)
		}
		return sources[0], nil
	}

	for _, src := range sources {
		if src.ID == req.PrimaryMemoryID {
			return src, nil
		}
	}
	return nil, fmt.Errorf("%w: primary memory %s is not among the sources",
		storage.ErrInvalidInput, req.PrimaryMemoryID)
}

// mergeContent computes the consolidated content for the strategy.
func mergeContent(sources []*types.Memory, primary *types.Memory, strategy types.MergeStrategy, separator string) (string, error) {
	switch strategy {
	case types.StrategyReplace:
		return primary.Content, nil

	case types.StrategyCombine:
		seen := make(map[string]bool, len(sources))
		parts := make([]string, 0, len(sources))
		for _, src := range primaryFirst(sources, primary) {
			key := types.HashContent(src.Content)
			if seen[key] {
				continue
			}
			seen[key] = true
			parts = append(parts, src.Content)
		}
		return strings.Join(parts, separator), nil

	case types.StrategyAppend:
		parts := make([]string, 0, len(sources))
		for _, src := range primaryFirst(sources, primary) {
			parts = append(parts, src.Content)
		}
		return strings.Join(parts, separator), nil

	default:
		return "", fmt.Errorf("%w: invalid merge strategy: %q", storage.ErrInvalidInput, strategy)
	}
}

// primaryFirst reorders sources so the primary leads, keeping the rest in
// input order.
func primaryFirst(sources []*types.Memory, primary *types.Memory) []*types.Memory {
	ordered := make([]*types.Memory, 0, len(sources))
	ordered = append(ordered, primary)
	for _, src := range sources {
		if src.ID != primary.ID {
			ordered = append(ordered, src)
		}
	}
	return ordered
}

// maxImportance returns the highest importance across sources.
func maxImportance(sources []*types.Memory) int {
	max := types.MinImportance
	for _, src := range sources {
		if src.Importance > max {
			max = src.Importance
		}
	}
	return max
}

// mergeContext unions the source context maps. Request overrides win over
// everything; then the primary's entries; among the rest, earlier sources win.
func mergeContext(sources []*types.Memory, primary *types.Memory, overrides map[string]string) map[string]string {
	merged := make(map[string]string)
	for k, v := range overrides {
		merged[k] = v
	}

	for _, src := range primaryFirst(sources, primary) {
		for k, v := range src.Context {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}

	if len(merged) == 0 {
		return nil
	}
	return merged
}

// conceptUnion collects the distinct concept IDs across all sources.
func (e *Engine) conceptUnion(ctx context.Context, sources []*types.Memory) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, src := range sources {
		concepts, err := e.store.ListForMemory(ctx, src.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list concepts for %s: %w", src.ID, err)
		}
		for _, c := range concepts {
			if !seen[c.ID] {
				seen[c.ID] = true
				ids = append(ids, c.ID)
			}
		}
	}
	return ids, nil
}
