package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/scrypster/memgraph/pkg/types"
)

// CreateRelationship handles POST /api/relationships.
func (h *Handlers) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rel := &types.Relationship{
		SourceID:      req.SourceID,
		TargetID:      req.TargetID,
		Type:          req.Type,
		Strength:      req.Strength,
		Bidirectional: req.Bidirectional,
		Metadata:      req.Metadata,
	}
	if err := h.store.CreateRelationship(r.Context(), rel); err != nil {
		respondStorageError(w, "failed to create relationship", err)
		return
	}
	respondJSON(w, http.StatusCreated, rel)
}

// ListRelationships handles GET /api/memories/{id}/relationships, returning
// every edge touching the memory ordered by strength.
func (h *Handlers) ListRelationships(w http.ResponseWriter, r *http.Request) {
	memoryID := r.PathValue("id")

	if _, err := h.store.Get(r.Context(), memoryID); err != nil {
		respondStorageError(w, "failed to get memory", err)
		return
	}

	rels, err := h.store.RelationshipsForMemory(r.Context(), memoryID)
	if err != nil {
		respondStorageError(w, "failed to list relationships", err)
		return
	}
	if rels == nil {
		rels = []types.Relationship{}
	}
	respondJSON(w, http.StatusOK, rels)
}

// DeleteRelationship handles DELETE /api/relationships/{id}.
func (h *Handlers) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteRelationship(r.Context(), r.PathValue("id")); err != nil {
		respondStorageError(w, "failed to delete relationship", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
