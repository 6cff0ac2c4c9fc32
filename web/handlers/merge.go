package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/scrypster/memgraph/internal/engine"
	"github.com/scrypster/memgraph/pkg/types"
)

// MergeMemories handles POST /api/memories/merge. Concurrent merges over
// overlapping sources are safe: exactly one wins, the other responds 409.
func (h *Handlers) MergeMemories(w http.ResponseWriter, r *http.Request) {
	var req MergeMemoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.engine.Merge(r.Context(), engine.MergeRequest{
		SourceMemoryIDs: req.SourceMemoryIDs,
		Strategy:        types.MergeStrategy(req.MergeStrategy),
		PrimaryMemoryID: req.PrimaryMemoryID,
		Separator:       req.Separator,
		Context:         req.Context,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		respondStorageError(w, "merge failed", err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// GetMergeAudit handles GET /api/audits/{id}.
func (h *Handlers) GetMergeAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := h.store.GetAudit(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStorageError(w, "failed to get merge audit", err)
		return
	}
	respondJSON(w, http.StatusOK, audit)
}

// ListMergeAudits handles GET /api/memories/{id}/audits, returning the merge
// history the memory participated in, as primary or as merged-away source.
func (h *Handlers) ListMergeAudits(w http.ResponseWriter, r *http.Request) {
	memoryID := r.PathValue("id")

	if _, err := h.store.Get(r.Context(), memoryID); err != nil {
		respondStorageError(w, "failed to get memory", err)
		return
	}

	audits, err := h.store.ListAuditsForMemory(r.Context(), memoryID)
	if err != nil {
		respondStorageError(w, "failed to list merge audits", err)
		return
	}
	if audits == nil {
		audits = []types.MergeAudit{}
	}
	respondJSON(w, http.StatusOK, audits)
}
