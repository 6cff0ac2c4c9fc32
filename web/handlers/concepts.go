package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/scrypster/memgraph/pkg/types"
)

// AttachConcepts handles POST /api/memories/{id}/concepts. Concepts are
// created on first use and linked idempotently.
func (h *Handlers) AttachConcepts(w http.ResponseWriter, r *http.Request) {
	var refs []ConceptRef
	if err := json.NewDecoder(r.Body).Decode(&refs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(refs) == 0 {
		respondError(w, http.StatusBadRequest, "at least one concept is required", nil)
		return
	}

	memoryID := r.PathValue("id")
	for _, ref := range refs {
		if err := h.attachConcept(r, memoryID, ref); err != nil {
			respondStorageError(w, "failed to attach concept", err)
			return
		}
	}

	concepts, err := h.store.ListForMemory(r.Context(), memoryID)
	if err != nil {
		respondStorageError(w, "failed to list concepts", err)
		return
	}
	respondJSON(w, http.StatusOK, concepts)
}

// ListConcepts handles GET /api/memories/{id}/concepts.
func (h *Handlers) ListConcepts(w http.ResponseWriter, r *http.Request) {
	memoryID := r.PathValue("id")

	// Surface unknown memories as 404 rather than an empty list.
	if _, err := h.store.Get(r.Context(), memoryID); err != nil {
		respondStorageError(w, "failed to get memory", err)
		return
	}

	concepts, err := h.store.ListForMemory(r.Context(), memoryID)
	if err != nil {
		respondStorageError(w, "failed to list concepts", err)
		return
	}
	if concepts == nil {
		concepts = []types.Concept{}
	}
	respondJSON(w, http.StatusOK, concepts)
}

// ConceptDistribution handles GET /api/concepts/distribution.
func (h *Handlers) ConceptDistribution(w http.ResponseWriter, r *http.Request) {
	distribution, err := h.store.DistributionByType(r.Context())
	if err != nil {
		respondStorageError(w, "failed to compute concept distribution", err)
		return
	}
	respondJSON(w, http.StatusOK, distribution)
}

// attachConcept resolves one concept reference and links it to the memory.
func (h *Handlers) attachConcept(r *http.Request, memoryID string, ref ConceptRef) error {
	conceptType := types.ConceptType(ref.Type)
	if ref.Type == "" {
		conceptType = types.ConceptTypeTopic
	}
	confidence := ref.Confidence
	if confidence == 0 {
		confidence = 1.0
	}

	concept, err := h.store.FindOrCreate(r.Context(), strings.TrimSpace(ref.Name), conceptType, confidence)
	if err != nil {
		return err
	}
	return h.store.LinkToMemory(r.Context(), memoryID, concept.ID)
}
