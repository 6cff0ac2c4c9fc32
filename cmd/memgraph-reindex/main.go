// memgraph-reindex re-embeds every unindexed memory in one pass. Useful after
// switching embedding models or recovering from a long embedding outage.
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"time"

	"github.com/scrypster/memgraph/internal/config"
	"github.com/scrypster/memgraph/internal/embedding"
	"github.com/scrypster/memgraph/internal/engine"
	"github.com/scrypster/memgraph/internal/storage/sqlite"
	"github.com/scrypster/memgraph/internal/vector"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (overrides MEMGRAPH_CONFIG)")
	batchSize := flag.Int("batch", 64, "Memories embedded per batch")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := sqlite.NewStore(filepath.Join(cfg.Storage.DataPath, "memgraph.db"))
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	provider := embedding.NewOllamaProvider(embedding.OllamaConfig{
		BaseURL:   cfg.Embedding.OllamaURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})

	if cfg.Vector.Backend != "pgvector" {
		log.Fatalf("reindex requires the pgvector backend; the in-memory index does not persist")
	}
	index, err := vector.NewPgIndex(cfg.Vector.PostgresDSN, cfg.Embedding.Dimension)
	if err != nil {
		log.Fatalf("Failed to open pgvector index: %v", err)
	}
	defer index.Close()

	ctx := context.Background()
	if err := provider.HealthCheck(ctx); err != nil {
		log.Fatalf("Embedding backend not available: %v", err)
	}

	eng := engine.NewEngine(store, provider, index)
	indexer := engine.NewIndexer(eng, engine.IndexerConfig{BatchSize: *batchSize})

	total := 0
	for {
		n := indexer.RunOnce(ctx)
		if n == 0 {
			break
		}
		total += n
	}
	log.Printf("reindex complete: %d memories indexed", total)
}
