// Package engine implements the memory graph operations on top of storage:
// semantic search, bounded relationship traversal, and the merge engine.
package engine

import (
	"time"

	"github.com/scrypster/memgraph/internal/embedding"
	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/internal/vector"
)

// Store is the storage surface the engine operates on. A single backend
// (e.g. the SQLite store) implements all of it.
type Store interface {
	storage.MemoryStore
	storage.ConceptStore
	storage.RelationshipStore
	storage.MergeStore
}

// Config tunes engine behavior. Zero values get defaults.
type Config struct {
	// EmbedRetries is how many times a failed query embedding is retried
	// before search gives up. Default: 2.
	EmbedRetries int

	// EmbedRetryBackoff is the initial backoff between embedding retries;
	// it doubles per attempt. Default: 100ms.
	EmbedRetryBackoff time.Duration

	// DefaultSearchLimit caps search results when the request does not.
	// Default: 10.
	DefaultSearchLimit int

	// MaxTraversalDepth is the hard cap on related-memory traversal depth.
	// Default: 5.
	MaxTraversalDepth int
}

func (c *Config) normalize() {
	if c.EmbedRetries <= 0 {
		c.EmbedRetries = 2
	}
	if c.EmbedRetryBackoff <= 0 {
		c.EmbedRetryBackoff = 100 * time.Millisecond
	}
	if c.DefaultSearchLimit <= 0 {
		c.DefaultSearchLimit = 10
	}
	if c.MaxTraversalDepth <= 0 {
		c.MaxTraversalDepth = 5
	}
}

// Engine coordinates the store, the embedding provider and the vector index.
type Engine struct {
	store    Store
	provider embedding.Provider
	index    vector.Index
	config   Config
}

// NewEngine creates an engine with default configuration.
func NewEngine(store Store, provider embedding.Provider, index vector.Index) *Engine {
	return NewEngineWithConfig(store, provider, index, Config{})
}

// NewEngineWithConfig creates an engine with custom configuration.
func NewEngineWithConfig(store Store, provider embedding.Provider, index vector.Index, config Config) *Engine {
	config.normalize()
	return &Engine{
		store:    store,
		provider: provider,
		index:    index,
		config:   config,
	}
}
