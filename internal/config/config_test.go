package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Server.Port != 7411 {
		t.Errorf("Port: got %d, want 7411", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host: got %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("Model: got %q", cfg.Embedding.Model)
	}
	if cfg.Vector.Backend != "memory" {
		t.Errorf("Backend: got %q, want memory", cfg.Vector.Backend)
	}
	if cfg.Indexer.BatchSize != 32 {
		t.Errorf("BatchSize: got %d, want 32", cfg.Indexer.BatchSize)
	}
}

func TestYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memgraph.yaml")
	content := `
server:
  port: 9000
embedding:
  model: mxbai-embed-large
  dimension: 1024
vector:
  backend: pgvector
  postgres_dsn: postgres://localhost/memgraph
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port: got %d, want 9000", cfg.Server.Port)
	}
	if cfg.Embedding.Model != "mxbai-embed-large" || cfg.Embedding.Dimension != 1024 {
		t.Errorf("Embedding: got %+v", cfg.Embedding)
	}
	if cfg.Vector.Backend != "pgvector" {
		t.Errorf("Backend: got %q, want pgvector", cfg.Vector.Backend)
	}
	// Fields absent from the file keep defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host: got %q, want default", cfg.Server.Host)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memgraph.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MEMGRAPH_PORT", "9100")
	t.Setenv("MEMGRAPH_API_TOKEN", "secret")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Port: got %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Security.APIToken != "secret" {
		t.Errorf("APIToken: got %q, want secret", cfg.Security.APIToken)
	}
}

func TestInvalidEnvIntFallsBack(t *testing.T) {
	t.Setenv("MEMGRAPH_PORT", "not-a-number")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Server.Port != 7411 {
		t.Errorf("Port: got %d, want default 7411", cfg.Server.Port)
	}
}

func TestValidation(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		t.Setenv("MEMGRAPH_PORT", "70000")
		if _, err := LoadFile(""); err == nil {
			t.Error("LoadFile() accepted port 70000")
		}
	})

	t.Run("pgvector without DSN", func(t *testing.T) {
		t.Setenv("MEMGRAPH_VECTOR_BACKEND", "pgvector")
		if _, err := LoadFile(""); err == nil {
			t.Error("LoadFile() accepted pgvector backend without a DSN")
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("MEMGRAPH_VECTOR_BACKEND", "faiss")
		if _, err := LoadFile(""); err == nil {
			t.Error("LoadFile() accepted unknown vector backend")
		}
	})
}

func TestMissingFile(t *testing.T) {
	if _, err := LoadFile("/nonexistent/memgraph.yaml"); err == nil {
		t.Error("LoadFile() succeeded on missing file")
	}
}
