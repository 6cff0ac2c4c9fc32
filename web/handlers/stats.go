package handlers

import (
	"net/http"
)

// BreakerStater is implemented by embedding providers that expose their
// circuit breaker state.
type BreakerStater interface {
	BreakerState() string
}

// StatsHandler serves GET /api/stats with corpus-level counts.
type StatsHandler struct {
	handlers *Handlers
	breaker  BreakerStater
}

// NewStatsHandler creates the stats handler. breaker may be nil.
func NewStatsHandler(h *Handlers, breaker BreakerStater) *StatsHandler {
	return &StatsHandler{handlers: h, breaker: breaker}
}

// Stats handles GET /api/stats.
func (s *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	store := s.handlers.store

	byStatus, err := store.CountByStatus(r.Context())
	if err != nil {
		respondStorageError(w, "failed to count memories", err)
		return
	}
	byType, err := store.DistributionByType(r.Context())
	if err != nil {
		respondStorageError(w, "failed to count concepts", err)
		return
	}
	relationships, err := store.CountRelationships(r.Context())
	if err != nil {
		respondStorageError(w, "failed to count relationships", err)
		return
	}
	merges, err := store.CountAudits(r.Context())
	if err != nil {
		respondStorageError(w, "failed to count merges", err)
		return
	}

	resp := StatsResponse{
		MemoriesByStatus: make(map[string]int, len(byStatus)),
		ConceptsByType:   make(map[string]int, len(byType)),
		Relationships:    relationships,
		Merges:           merges,
	}
	for status, n := range byStatus {
		resp.MemoriesByStatus[string(status)] = n
	}
	for conceptType, n := range byType {
		resp.ConceptsByType[string(conceptType)] = n
	}
	if s.breaker != nil {
		resp.EmbeddingCircuit = s.breaker.BreakerState()
	}

	respondJSON(w, http.StatusOK, resp)
}
