package handlers

import (
	"net/http"

	"github.com/scrypster/memgraph/internal/engine"
)

// Search handles GET /api/search?q=...&limit=...&min_score=...
// Embedding backend outages come back as 503 with retryable set, so clients
// know to back off and retry rather than treat it as a hard failure.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.engine.Search(r.Context(), engine.SearchRequest{
		Query:    q.Get("q"),
		Limit:    parseInt(q.Get("limit"), 0),
		MinScore: parseFloat(q.Get("min_score"), 0),
	})
	if err != nil {
		respondStorageError(w, "search failed", err)
		return
	}
	if result.Matches == nil {
		result.Matches = []engine.SearchMatch{}
	}
	respondJSON(w, http.StatusOK, result)
}

// Related handles GET /api/memories/{id}/related?max_depth=...&min_strength=...
func (h *Handlers) Related(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	results, err := h.engine.Related(r.Context(), engine.RelatedRequest{
		MemoryID:    r.PathValue("id"),
		MaxDepth:    parseInt(q.Get("max_depth"), 0),
		MinStrength: parseFloat(q.Get("min_strength"), 0),
	})
	if err != nil {
		respondStorageError(w, "traversal failed", err)
		return
	}
	if results == nil {
		results = []engine.RelatedMemory{}
	}
	respondJSON(w, http.StatusOK, results)
}
