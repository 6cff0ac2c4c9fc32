package types

import "time"

// MergeAudit is the immutable record of a merge operation. One row is written
// per merge naming the surviving memory and the full superseded set; rows are
// append-only and never updated.
type MergeAudit struct {
	ID              string        `json:"id"`                // Unique identifier (format: audit:uuid)
	PrimaryMemoryID string        `json:"primary_memory_id"` // The surviving memory created by the merge
	MergedMemoryIDs []string      `json:"merged_memory_ids"` // All superseded input memories
	Strategy        MergeStrategy `json:"strategy"`
	CreatedBy       string        `json:"created_by,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Supersedes reports whether the audit lists the given memory as merged away.
func (a *MergeAudit) Supersedes(memoryID string) bool {
	for _, id := range a.MergedMemoryIDs {
		if id == memoryID {
			return true
		}
	}
	return false
}
