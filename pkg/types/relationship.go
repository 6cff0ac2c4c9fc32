package types

import (
	"fmt"
	"time"
)

// Relationship represents a typed, weighted, directed edge between two
// memories. When Bidirectional is true the edge is traversable in both
// directions with identical strength. The graph may contain cycles; all
// traversal is cycle-safe via visited sets keyed by memory ID.
type Relationship struct {
	// Core identification fields
	ID       string `json:"id"`        // Unique identifier (format: rel:uuid)
	SourceID string `json:"source_id"` // Source memory ID
	TargetID string `json:"target_id"` // Target memory ID
	Type     string `json:"type"`      // Relationship type (e.g., "relates_to", "builds_upon")

	// Edge properties
	Strength      float64           `json:"strength"`      // 0.0-1.0 traversal/ranking weight
	Bidirectional bool              `json:"bidirectional"` // True if traversable in both directions
	Metadata      map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Touches reports whether the relationship has the given memory as an endpoint.
func (r *Relationship) Touches(memoryID string) bool {
	return r.SourceID == memoryID || r.TargetID == memoryID
}

// Other returns the opposite endpoint from the given memory ID. Returns the
// empty string when the memory is not an endpoint of this relationship.
func (r *Relationship) Other(memoryID string) string {
	switch memoryID {
	case r.SourceID:
		return r.TargetID
	case r.TargetID:
		return r.SourceID
	}
	return ""
}

// Validate checks the relationship's fields against domain invariants.
// Out-of-range strengths are a validation error rather than being silently
// clamped, so callers can detect bad input.
func (r *Relationship) Validate() error {
	if r.SourceID == "" {
		return fmt.Errorf("source memory ID is required")
	}
	if r.TargetID == "" {
		return fmt.Errorf("target memory ID is required")
	}
	if r.SourceID == r.TargetID {
		return fmt.Errorf("relationship cannot link a memory to itself")
	}
	if r.Type == "" {
		return fmt.Errorf("relationship type is required")
	}
	if r.Strength < 0.0 || r.Strength > 1.0 {
		return fmt.Errorf("strength must be between 0.0 and 1.0, got %g", r.Strength)
	}
	return nil
}
