package types

import (
	"fmt"
	"time"
)

// Concept is a named classifier attachable to memories. Names are unique
// within the registry; FindOrCreate on the store is idempotent by name.
type Concept struct {
	ID          string      `json:"id"`   // Unique identifier (format: concept:uuid)
	Name        string      `json:"name"` // Unique display name
	Type        ConceptType `json:"type"`
	Confidence  float64     `json:"confidence"` // 0.0-1.0 extraction confidence
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// MemoryConcept is the many-to-many join between memories and concepts.
// Linking the same pair twice is a no-op, not an error.
type MemoryConcept struct {
	MemoryID  string    `json:"memory_id"`
	ConceptID string    `json:"concept_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the concept's fields against domain invariants.
func (c *Concept) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("concept name is required")
	}
	if !IsValidConceptType(c.Type) {
		return fmt.Errorf("invalid concept type: %s", c.Type)
	}
	if c.Confidence < 0.0 || c.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %g", c.Confidence)
	}
	return nil
}
