package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// SearchRequest describes a semantic search over memory content.
type SearchRequest struct {
	// Query is the natural-language search text.
	Query string

	// Limit caps result count. Zero uses the engine default.
	Limit int

	// MinScore filters out candidates below this cosine similarity.
	MinScore float64
}

// SearchMatch is one search result with its similarity score.
type SearchMatch struct {
	Memory types.Memory `json:"memory"`
	Score  float64      `json:"score"`
}

// SearchResult is the outcome of a semantic search.
type SearchResult struct {
	Matches          []SearchMatch `json:"matches"`
	Total            int           `json:"total"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}

// Search embeds the query, finds nearest memories in the vector index and
// hydrates them from the store. Only searchable (active) memories are
// returned; merged and archived ones are filtered out even when their
// vectors still linger in the index. Embedding failures are retried with
// backoff and surface as ErrDependency so callers can signal retryability.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: search query is required", storage.ErrInvalidInput)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.config.DefaultSearchLimit
	}

	queryVec, err := e.embedWithRetry(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	// Over-fetch to absorb candidates that hydrate to merged or deleted
	// memories and get filtered below.
	candidates, err := e.index.Query(ctx, queryVec, limit*2, req.MinScore)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	matches := make([]SearchMatch, 0, len(candidates))
	for _, c := range candidates {
		if len(matches) >= limit {
			break
		}

		mem, err := e.store.Get(ctx, c.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Stale index entry; drop it so it stops matching.
				if delErr := e.index.Delete(ctx, c.ID); delErr != nil {
					log.Printf("engine: failed to drop stale vector %s: %v", c.ID, delErr)
				}
				continue
			}
			return nil, fmt.Errorf("failed to hydrate search result %s: %w", c.ID, err)
		}
		if !mem.Searchable() {
			continue
		}

		matches = append(matches, SearchMatch{Memory: *mem, Score: c.Score})
	}

	// Access bookkeeping is best effort; a failed counter update never
	// fails the search.
	for _, m := range matches {
		if err := e.store.IncrementAccessCount(ctx, m.Memory.ID); err != nil {
			log.Printf("engine: failed to record access for %s: %v", m.Memory.ID, err)
		}
	}

	return &SearchResult{
		Matches:          matches,
		Total:            len(matches),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// embedWithRetry embeds text, retrying transient provider failures with
// doubling backoff. Exhausted retries wrap ErrDependency.
func (e *Engine) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	backoff := e.config.EmbedRetryBackoff

	var lastErr error
	for attempt := 0; attempt <= e.config.EmbedRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		vec, err := e.provider.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: embedding failed after %d attempts: %v",
		storage.ErrDependency, e.config.EmbedRetries+1, lastErr)
}
