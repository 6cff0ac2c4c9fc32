package engine

import (
	"context"
	"fmt"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// RelatedRequest describes a bounded traversal from a starting memory.
type RelatedRequest struct {
	// MemoryID is the traversal root.
	MemoryID string

	// MaxDepth bounds how many hops from the root are followed.
	// Zero means the default of 2; values above the engine cap are clamped.
	MaxDepth int

	// MinStrength filters out edges weaker than this threshold.
	MinStrength float64
}

// RelatedMemory is one memory reached by traversal, with how it was reached.
type RelatedMemory struct {
	Memory types.Memory `json:"memory"`

	// Depth is the hop count from the root.
	Depth int `json:"depth"`

	// RelationshipType is the type of the edge this memory was first
	// reached through.
	RelationshipType string `json:"relationship_type"`

	// Strength is the strength of that edge.
	Strength float64 `json:"strength"`

	// Path is the memory ID sequence from the root to this memory,
	// excluding the root itself.
	Path []string `json:"path"`
}

// Related performs breadth-first traversal of the relationship graph from the
// given memory. Directed edges are followed source to target; bidirectional
// edges are followed both ways. Each memory is reported once, at its first
// (shallowest) discovery; among equal-depth discoveries the strongest edge
// wins, with creation time and relationship ID as tie-breakers, which the
// store's edge ordering already provides.
//
// Merged memories are traversed through so consolidation does not sever the
// graph, but they are excluded from results.
func (e *Engine) Related(ctx context.Context, req RelatedRequest) ([]RelatedMemory, error) {
	if req.MemoryID == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if req.MinStrength < 0 || req.MinStrength > 1 {
		return nil, fmt.Errorf("%w: min strength must be between 0 and 1", storage.ErrInvalidInput)
	}

	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 2
	}
	if maxDepth > e.config.MaxTraversalDepth {
		maxDepth = e.config.MaxTraversalDepth
	}

	// Verify the root exists before traversing.
	if _, err := e.store.Get(ctx, req.MemoryID); err != nil {
		return nil, err
	}

	type queueItem struct {
		id       string
		depth    int
		edgeType string
		strength float64
		path     []string
	}

	queue := []queueItem{{id: req.MemoryID, depth: 0}}
	visited := map[string]bool{req.MemoryID: true}

	var results []RelatedMemory

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		current := queue[0]
		queue = queue[1:]

		if current.depth > 0 {
			mem, err := e.store.Get(ctx, current.id)
			if err != nil {
				// A neighbor deleted mid-traversal is skipped, not fatal.
				continue
			}
			// Merged memories stay traversable but never appear in results.
			if !mem.IsMerged() {
				results = append(results, RelatedMemory{
					Memory:           *mem,
					Depth:            current.depth,
					RelationshipType: current.edgeType,
					Strength:         current.strength,
					Path:             current.path,
				})
			}
		}

		if current.depth >= maxDepth {
			continue
		}

		// Edges arrive ordered strength desc, created_at asc, id asc, so
		// the first edge reaching an unvisited neighbor is the canonical one.
		rels, err := e.store.RelationshipsForMemory(ctx, current.id)
		if err != nil {
			return nil, fmt.Errorf("failed to load edges for %s: %w", current.id, err)
		}

		for _, rel := range rels {
			if rel.Strength < req.MinStrength {
				continue
			}

			var next string
			switch {
			case rel.SourceID == current.id:
				next = rel.TargetID
			case rel.Bidirectional:
				next = rel.SourceID
			default:
				// Incoming directed edge; not traversable backwards.
				continue
			}

			if visited[next] {
				continue
			}
			visited[next] = true

			path := make([]string, 0, len(current.path)+1)
			path = append(path, current.path...)
			path = append(path, next)

			queue = append(queue, queueItem{
				id:       next,
				depth:    current.depth + 1,
				edgeType: rel.Type,
				strength: rel.Strength,
				path:     path,
			})
		}
	}

	return results, nil
}
