// Package embedding provides text embedding generation for semantic search.
// All providers speak HTTP to an external model server and are wrapped with
// circuit breaker protection so a dead embedding backend degrades search
// instead of hanging the whole service.
package embedding

import "context"

// Provider generates embedding vectors for memory content and search queries.
type Provider interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple texts in order.
	// The result has one vector per input text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension the provider produces.
	Dimension() int

	// Model returns the model identifier in use.
	Model() string

	// HealthCheck verifies the embedding backend is reachable.
	HealthCheck(ctx context.Context) error
}
