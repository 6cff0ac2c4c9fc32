package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/scrypster/memgraph/internal/storage"
)

// MemoryIndex is a brute-force cosine similarity index held in process memory.
// It is the default backend for SQLite deployments, where corpus sizes stay
// small enough that a linear scan per query is fine.
type MemoryIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
	norms   map[string]float64
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		vectors: make(map[string][]float32),
		norms:   make(map[string]float64),
	}
}

// Upsert stores a vector, replacing any existing entry for the ID.
func (idx *MemoryIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if id == "" {
		return fmt.Errorf("%w: vector ID is required", storage.ErrInvalidInput)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: vector cannot be empty", storage.ErrInvalidInput)
	}

	norm := vectorNorm(vector)
	if norm == 0 {
		return fmt.Errorf("%w: zero vector cannot be indexed", storage.ErrInvalidInput)
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[id] = stored
	idx.norms[id] = norm
	return nil
}

// Query scans all stored vectors and returns the topK most similar ones with
// score >= minScore, ordered by descending score. Ties break on ID for
// deterministic results.
func (idx *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, minScore float64) ([]Candidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector cannot be empty", storage.ErrInvalidInput)
	}
	if topK <= 0 {
		return nil, nil
	}

	queryNorm := vectorNorm(vector)
	if queryNorm == 0 {
		return nil, fmt.Errorf("%w: zero query vector", storage.ErrInvalidInput)
	}

	idx.mu.RLock()
	candidates := make([]Candidate, 0, len(idx.vectors))
	for id, stored := range idx.vectors {
		if len(stored) != len(vector) {
			continue
		}
		score := dotProduct(vector, stored) / (queryNorm * idx.norms[id])
		if score >= minScore {
			candidates = append(candidates, Candidate{ID: id, Score: score})
		}
	}
	idx.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// Delete removes a vector. Unknown IDs are ignored.
func (idx *MemoryIndex) Delete(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, id)
	delete(idx.norms, id)
	return nil
}

// Len returns the number of stored vectors.
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
