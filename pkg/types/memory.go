package types

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Memory represents a single atomic knowledge fragment.
// Memories carry content, structured context metadata, an importance score
// used for ranking, and lifecycle status. The vector index handle is empty
// until the async indexer has embedded the content.
type Memory struct {
	// Core identification fields
	ID          string `json:"id"`           // Unique identifier (format: mem:uuid)
	Content     string `json:"content"`      // Raw memory content
	ContentHash string `json:"content_hash"` // SHA-256 hash of normalized content, for dedup lookups

	// Structured context metadata (owner, project, session, ...)
	Context map[string]string `json:"context,omitempty"`

	// Ranking and lifecycle
	Importance int          `json:"importance"` // 1-5, informs ranking and retention
	Status     MemoryStatus `json:"status"`     // active, archived, or merged

	// Read-through bookkeeping
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	// VectorID is the handle into the external vector index. Empty until
	// embedding and indexing complete.
	VectorID string `json:"vector_id,omitempty"`

	// Provenance
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HashContent computes the deterministic content hash used for duplicate
// detection. The content is whitespace-normalized first so trailing newlines
// and indentation differences do not defeat dedup lookups. Equal content from
// different contexts is legitimate, so the hash is not a uniqueness constraint.
func HashContent(content string) string {
	normalized := strings.Join(strings.Fields(content), " ")
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalized)))
}

// IsMerged reports whether the memory has been superseded by a merge.
func (m *Memory) IsMerged() bool {
	return m.Status == StatusMerged
}

// Searchable reports whether the memory may appear in default search results.
func (m *Memory) Searchable() bool {
	return m.Status == StatusActive
}

// Validate checks the memory's fields against domain invariants.
func (m *Memory) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("memory ID is required")
	}
	if m.Content == "" {
		return fmt.Errorf("memory content is required")
	}
	if !IsValidImportance(m.Importance) {
		return fmt.Errorf("importance must be between %d and %d, got %d",
			MinImportance, MaxImportance, m.Importance)
	}
	if m.Status != "" && !IsValidMemoryStatus(m.Status) {
		return fmt.Errorf("invalid memory status: %s", m.Status)
	}
	return nil
}
