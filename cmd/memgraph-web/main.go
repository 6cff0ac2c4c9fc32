package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/scrypster/memgraph/internal/config"
	"github.com/scrypster/memgraph/internal/embedding"
	"github.com/scrypster/memgraph/internal/engine"
	"github.com/scrypster/memgraph/internal/server"
	"github.com/scrypster/memgraph/internal/storage/sqlite"
	"github.com/scrypster/memgraph/internal/vector"
	"github.com/scrypster/memgraph/web/handlers"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (overrides MEMGRAPH_CONFIG)")
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

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	store, err := sqlite.NewStore(filepath.Join(cfg.Storage.DataPath, "memgraph.db"))
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	provider := embedding.NewOllamaProvider(embedding.OllamaConfig{
		BaseURL:   cfg.Embedding.OllamaURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})

	var index vector.Index
	var breaker handlers.BreakerStater = provider
	switch cfg.Vector.Backend {
	case "pgvector":
		pgIndex, err := vector.NewPgIndex(cfg.Vector.PostgresDSN, cfg.Embedding.Dimension)
		if err != nil {
			log.Fatalf("Failed to initialize pgvector index: %v", err)
		}
		defer pgIndex.Close()
		index = pgIndex
	default:
		index = vector.NewMemoryIndex()
	}

	eng := engine.NewEngine(store, provider, index)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	indexer := engine.NewIndexer(eng, engine.IndexerConfig{
		Interval:  time.Duration(cfg.Indexer.IntervalSeconds) * time.Second,
		BatchSize: cfg.Indexer.BatchSize,
	})
	indexer.Start(ctx)

	srv := server.New(cfg, store, eng, breaker)
	addr, err := srv.Start()
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("memgraph API running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	indexer.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
}
