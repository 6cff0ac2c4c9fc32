// Package vector provides the similarity index behind semantic search.
// Two backends exist: an in-process brute-force index for SQLite deployments
// and tests, and a pgvector-backed index for PostgreSQL deployments.
package vector

import "context"

// Candidate is one similarity match returned by a query.
type Candidate struct {
	// ID is the vector ID the embedding was stored under.
	ID string

	// Score is cosine similarity in [-1, 1]; higher is more similar.
	Score float64
}

// Index stores embedding vectors and answers nearest-neighbor queries.
type Index interface {
	// Upsert stores a vector under the given ID, replacing any existing one.
	Upsert(ctx context.Context, id string, vector []float32) error

	// Query returns up to topK candidates with similarity >= minScore,
	// ordered by descending score.
	Query(ctx context.Context, vector []float32, topK int, minScore float64) ([]Candidate, error)

	// Delete removes a vector. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}
