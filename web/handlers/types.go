// Package handlers provides the HTTP handlers and middleware for the memgraph
// REST API.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/scrypster/memgraph/internal/engine"
	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	Retryable bool                   `json:"retryable,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// CreateMemoryRequest is the request format for POST /api/memories.
type CreateMemoryRequest struct {
	Content    string            `json:"content"`
	Context    map[string]string `json:"context,omitempty"`
	Importance int               `json:"importance,omitempty"`
	CreatedBy  string            `json:"created_by,omitempty"`

	// Concepts are concept names to attach; each is created on first use.
	Concepts []ConceptRef `json:"concepts,omitempty"`
}

// ConceptRef names a concept to attach to a memory.
type ConceptRef struct {
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// CreateMemoryResponse wraps a created memory with dedup information.
type CreateMemoryResponse struct {
	Memory types.Memory `json:"memory"`

	// DuplicateOf lists existing memories sharing the same content hash.
	// Creation still succeeds; this is a hint the caller may want to merge.
	DuplicateOf []string `json:"duplicate_of,omitempty"`
}

// UpdateMemoryRequest is the request format for PATCH /api/memories/{id}.
type UpdateMemoryRequest struct {
	Content    *string           `json:"content,omitempty"`
	Context    map[string]string `json:"context,omitempty"`
	Importance *int              `json:"importance,omitempty"`
}

// ListMemoriesResponse is the response format for GET /api/memories.
type ListMemoriesResponse struct {
	Memories []types.Memory `json:"memories"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}

// CreateRelationshipRequest is the request format for POST /api/relationships.
type CreateRelationshipRequest struct {
	SourceID      string            `json:"source_id"`
	TargetID      string            `json:"target_id"`
	Type          string            `json:"type"`
	Strength      float64           `json:"strength"`
	Bidirectional bool              `json:"bidirectional,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// MergeMemoriesRequest is the request format for POST /api/memories/merge.
type MergeMemoriesRequest struct {
	SourceMemoryIDs []string          `json:"source_memory_ids"`
	MergeStrategy   string            `json:"merge_strategy"`
	PrimaryMemoryID string            `json:"primary_memory_id,omitempty"`
	Separator       string            `json:"separator,omitempty"`
	Context         map[string]string `json:"context,omitempty"`
	CreatedBy       string            `json:"created_by,omitempty"`
}

// StatsResponse is the response format for GET /api/stats.
type StatsResponse struct {
	MemoriesByStatus map[string]int `json:"memories_by_status"`
	ConceptsByType   map[string]int `json:"concepts_by_type"`
	Relationships    int            `json:"relationships"`
	Merges           int            `json:"merges"`
	EmbeddingCircuit string         `json:"embedding_circuit,omitempty"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("handlers: failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error:     message,
		Code:      http.StatusText(statusCode),
		Retryable: statusCode == http.StatusServiceUnavailable,
	}
	if err != nil {
		errResp.Details = map[string]interface{}{"error": err.Error()}
	}
	respondJSON(w, statusCode, errResp)
}

// respondStorageError maps storage sentinel errors onto HTTP statuses.
func respondStorageError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, storage.ErrConflict):
		respondError(w, http.StatusConflict, message, err)
	case errors.Is(err, storage.ErrDependency):
		respondError(w, http.StatusServiceUnavailable, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

// parseInt parses an integer query parameter, returning defaultValue when
// absent or unparseable.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// parseFloat parses a float query parameter, returning defaultValue when
// absent or unparseable.
func parseFloat(s string, defaultValue float64) float64 {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultValue
	}
	return val
}

// Handlers bundles the API handlers and their dependencies.
type Handlers struct {
	store  engine.Store
	engine *engine.Engine
}

// NewHandlers creates the API handler set.
func NewHandlers(store engine.Store, eng *engine.Engine) *Handlers {
	return &Handlers{store: store, engine: eng}
}
