// Package server provides HTTP server initialization and lifecycle management
// for the memgraph REST API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/scrypster/memgraph/internal/config"
	"github.com/scrypster/memgraph/internal/engine"
	"github.com/scrypster/memgraph/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Server owns the HTTP listener and its graceful shutdown.
type Server struct {
	httpServer *http.Server
	addr       string
}

// New builds the server with all routes and middleware wired. breaker may be
// nil when the embedding provider does not expose circuit state.
func New(cfg *config.Config, store engine.Store, eng *engine.Engine, breaker handlers.BreakerStater) *Server {
	h := handlers.NewHandlers(store, eng)
	statsHandler := handlers.NewStatsHandler(h, breaker)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/memories", h.CreateMemory)
	mux.HandleFunc("GET /api/memories", h.ListMemories)
	mux.HandleFunc("GET /api/memories/{id}", h.GetMemory)
	mux.HandleFunc("PATCH /api/memories/{id}", h.UpdateMemory)
	mux.HandleFunc("DELETE /api/memories/{id}", h.DeleteMemory)
	mux.HandleFunc("POST /api/memories/{id}/archive", h.ArchiveMemory)
	mux.HandleFunc("POST /api/memories/{id}/unarchive", h.UnarchiveMemory)

	mux.HandleFunc("POST /api/memories/{id}/concepts", h.AttachConcepts)
	mux.HandleFunc("GET /api/memories/{id}/concepts", h.ListConcepts)
	mux.HandleFunc("GET /api/concepts/distribution", h.ConceptDistribution)

	mux.HandleFunc("POST /api/relationships", h.CreateRelationship)
	mux.HandleFunc("DELETE /api/relationships/{id}", h.DeleteRelationship)
	mux.HandleFunc("GET /api/memories/{id}/relationships", h.ListRelationships)

	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/memories/{id}/related", h.Related)

	mux.HandleFunc("POST /api/memories/merge", h.MergeMemories)
	mux.HandleFunc("GET /api/audits/{id}", h.GetMergeAudit)
	mux.HandleFunc("GET /api/memories/{id}/audits", h.ListMergeAudits)

	mux.HandleFunc("GET /api/stats", statsHandler.Stats)
	health := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	}
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /api/health", health)

	rateLimiter := handlers.NewRateLimiter(
		float64(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)

	var handler http.Handler = mux
	handler = handlers.RequireAuth(handler, cfg.Security.APIToken)
	handler = handlers.RateLimitMiddleware(handler, rateLimiter)
	handler = securityHeadersMiddleware(handler)
	handler = handlers.LogRequests(handler, log.Printf)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr: addr,
	}
}

// Start begins serving on the configured address. It returns the actual
// listen address, useful when the configured port is 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("server: failed to listen on %s: %w", s.addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve error: %v", err)
		}
	}()

	log.Printf("server: listening on %s", ln.Addr())
	return ln.Addr().String(), nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
