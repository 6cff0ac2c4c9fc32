package engine

import (
	"context"
	"log"
	"sync"
	"time"
)

// IndexerConfig tunes the background embedding indexer.
type IndexerConfig struct {
	// Interval is how often the indexer polls for unindexed memories.
	// Default: 30 seconds.
	Interval time.Duration

	// BatchSize is how many memories are embedded per poll. Default: 32.
	BatchSize int
}

// Indexer is the background worker that embeds newly created memories and
// registers them in the vector index. Memory writes never wait on the
// embedding backend; a memory is searchable once the indexer catches up
// with it.
type Indexer struct {
	engine *Engine
	config IndexerConfig

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewIndexer creates an indexer over the engine's store, provider and index.
func NewIndexer(engine *Engine, config IndexerConfig) *Indexer {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	return &Indexer{
		engine: engine,
		config: config,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the polling loop. Call Stop to shut it down.
func (ix *Indexer) Start(ctx context.Context) {
	go func() {
		defer close(ix.done)

		log.Printf("indexer: started (interval=%s, batch=%d)", ix.config.Interval, ix.config.BatchSize)
		ticker := time.NewTicker(ix.config.Interval)
		defer ticker.Stop()

		// Drain any backlog immediately on startup.
		ix.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Printf("indexer: stopped: %v", ctx.Err())
				return
			case <-ix.stop:
				log.Printf("indexer: stopped")
				return
			case <-ticker.C:
				ix.RunOnce(ctx)
			}
		}
	}()
}

// Stop shuts the polling loop down and waits for it to exit.
func (ix *Indexer) Stop() {
	ix.stopOnce.Do(func() { close(ix.stop) })
	<-ix.done
}

// RunOnce indexes one batch of unindexed memories and returns how many were
// indexed. Failures are logged and the affected memories stay unindexed, so
// the next pass retries them.
func (ix *Indexer) RunOnce(ctx context.Context) int {
	pending, err := ix.engine.store.ListUnindexed(ctx, ix.config.BatchSize)
	if err != nil {
		log.Printf("indexer: failed to list unindexed memories: %v", err)
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	texts := make([]string, len(pending))
	for i, mem := range pending {
		texts[i] = mem.Content
	}

	vectors, err := ix.engine.provider.EmbedBatch(ctx, texts)
	if err != nil {
		log.Printf("indexer: embedding batch of %d failed: %v", len(pending), err)
		return 0
	}

	indexed := 0
	for i, mem := range pending {
		// The memory ID doubles as the vector ID; a set vector_id marks
		// the memory as indexed.
		if err := ix.engine.index.Upsert(ctx, mem.ID, vectors[i]); err != nil {
			log.Printf("indexer: failed to index %s: %v", mem.ID, err)
			continue
		}
		if err := ix.engine.store.SetVectorID(ctx, mem.ID, mem.ID); err != nil {
			log.Printf("indexer: failed to record vector ID for %s: %v", mem.ID, err)
			continue
		}
		indexed++
	}

	if indexed > 0 {
		log.Printf("indexer: indexed %d of %d pending memories", indexed, len(pending))
	}
	return indexed
}
