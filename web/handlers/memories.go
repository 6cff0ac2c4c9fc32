package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// CreateMemory handles POST /api/memories.
// Identical content is allowed; the response flags existing memories with the
// same content hash so the caller can decide whether to merge instead.
func (h *Handlers) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "content is required", nil)
		return
	}

	importance := req.Importance
	if importance == 0 {
		importance = types.DefaultImportance
	}

	mem := &types.Memory{
		ID:         "mem:" + uuid.NewString(),
		Content:    req.Content,
		Context:    req.Context,
		Importance: importance,
		Status:     types.StatusActive,
		CreatedBy:  req.CreatedBy,
	}

	// Look up same-content memories before inserting so the new row does
	// not count itself.
	hash := types.HashContent(req.Content)
	existing, _, err := h.store.Find(r.Context(), storage.MemoryFilter{ContentHash: hash})
	if err != nil {
		respondStorageError(w, "failed to check for duplicates", err)
		return
	}

	if err := h.store.Create(r.Context(), mem); err != nil {
		respondStorageError(w, "failed to create memory", err)
		return
	}

	for _, ref := range req.Concepts {
		if err := h.attachConcept(r, mem.ID, ref); err != nil {
			respondStorageError(w, "failed to attach concept", err)
			return
		}
	}

	resp := CreateMemoryResponse{Memory: *mem}
	for _, dup := range existing {
		if dup.Searchable() {
			resp.DuplicateOf = append(resp.DuplicateOf, dup.ID)
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

// GetMemory handles GET /api/memories/{id}. Merged memories remain readable.
func (h *Handlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	mem, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStorageError(w, "failed to get memory", err)
		return
	}
	respondJSON(w, http.StatusOK, mem)
}

// ListMemories handles GET /api/memories with status, created_by and
// content_hash filters plus limit/offset pagination.
func (h *Handlers) ListMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.MemoryFilter{
		Status:      types.MemoryStatus(q.Get("status")),
		CreatedBy:   q.Get("created_by"),
		ContentHash: q.Get("content_hash"),
		Limit:       parseInt(q.Get("limit"), 0),
		Offset:      parseInt(q.Get("offset"), 0),
	}

	if filter.Status != "" && !types.IsValidMemoryStatus(filter.Status) {
		respondError(w, http.StatusBadRequest, "invalid status filter", nil)
		return
	}

	memories, total, err := h.store.Find(r.Context(), filter)
	if err != nil {
		respondStorageError(w, "failed to list memories", err)
		return
	}

	filter.Normalize()
	respondJSON(w, http.StatusOK, ListMemoriesResponse{
		Memories: memories,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// UpdateMemory handles PATCH /api/memories/{id}. Only provided fields change;
// merged memories are frozen and respond 409.
func (h *Handlers) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	mem, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStorageError(w, "failed to get memory", err)
		return
	}

	if req.Content != nil {
		mem.Content = *req.Content
	}
	if req.Context != nil {
		mem.Context = req.Context
	}
	if req.Importance != nil {
		mem.Importance = *req.Importance
	}

	if err := h.store.Update(r.Context(), mem); err != nil {
		respondStorageError(w, "failed to update memory", err)
		return
	}
	respondJSON(w, http.StatusOK, mem)
}

// DeleteMemory handles DELETE /api/memories/{id}. Relationships and concept
// links go with it; memories serving as merge audit primaries respond 409.
func (h *Handlers) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondStorageError(w, "failed to delete memory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveMemory handles POST /api/memories/{id}/archive.
func (h *Handlers) ArchiveMemory(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, types.StatusArchived)
}

// UnarchiveMemory handles POST /api/memories/{id}/unarchive.
func (h *Handlers) UnarchiveMemory(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, types.StatusActive)
}

func (h *Handlers) setStatus(w http.ResponseWriter, r *http.Request, status types.MemoryStatus) {
	mem, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStorageError(w, "failed to get memory", err)
		return
	}

	mem.Status = status
	if err := h.store.Update(r.Context(), mem); err != nil {
		respondStorageError(w, "failed to update memory status", err)
		return
	}
	respondJSON(w, http.StatusOK, mem)
}
