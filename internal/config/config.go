// Package config provides configuration management for memgraph. Settings
// come from an optional YAML file plus environment variables with the
// MEMGRAPH_ prefix; environment variables win, and everything has a default.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the memgraph service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Security  SecurityConfig  `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host           string `yaml:"host"`             // Bind address (default: 127.0.0.1)
	Port           int    `yaml:"port"`             // Server port (default: 7411)
	RateLimitRPS   int    `yaml:"rate_limit_rps"`   // Requests per second per client (default: 50)
	RateLimitBurst int    `yaml:"rate_limit_burst"` // Burst allowance (default: 100)
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	DataPath string `yaml:"data_path"` // SQLite data directory (default: ./data)
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	OllamaURL      string `yaml:"ollama_url"`      // Ollama API URL (default: http://localhost:11434)
	Model          string `yaml:"model"`           // Embedding model (default: nomic-embed-text)
	Dimension      int    `yaml:"dimension"`       // Vector dimension (default: 768)
	TimeoutSeconds int    `yaml:"timeout_seconds"` // Per-request timeout (default: 10)
}

// VectorConfig selects and configures the vector index backend.
type VectorConfig struct {
	Backend     string `yaml:"backend"`      // memory or pgvector (default: memory)
	PostgresDSN string `yaml:"postgres_dsn"` // Connection string for the pgvector backend
}

// IndexerConfig tunes the background embedding indexer.
type IndexerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"` // Poll interval (default: 30)
	BatchSize       int `yaml:"batch_size"`       // Memories embedded per poll (default: 32)
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	APIToken string `yaml:"api_token"` // Bearer token; empty disables auth
}

// Load builds configuration in three layers: defaults, then the YAML file at
// MEMGRAPH_CONFIG (if set), then MEMGRAPH_ environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("MEMGRAPH_CONFIG"))
}

// LoadFile is Load with an explicit config file path. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           7411,
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		},
		Storage: StorageConfig{
			DataPath: "./data",
		},
		Embedding: EmbeddingConfig{
			OllamaURL:      "http://localhost:11434",
			Model:          "nomic-embed-text",
			Dimension:      768,
			TimeoutSeconds: 10,
		},
		Vector: VectorConfig{
			Backend: "memory",
		},
		Indexer: IndexerConfig{
			IntervalSeconds: 30,
			BatchSize:       32,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("MEMGRAPH_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("MEMGRAPH_PORT", cfg.Server.Port)
	cfg.Server.RateLimitRPS = getEnvInt("MEMGRAPH_RATE_LIMIT_RPS", cfg.Server.RateLimitRPS)
	cfg.Server.RateLimitBurst = getEnvInt("MEMGRAPH_RATE_LIMIT_BURST", cfg.Server.RateLimitBurst)

	cfg.Storage.DataPath = getEnv("MEMGRAPH_DATA_PATH", cfg.Storage.DataPath)

	cfg.Embedding.OllamaURL = getEnv("MEMGRAPH_OLLAMA_URL", cfg.Embedding.OllamaURL)
	cfg.Embedding.Model = getEnv("MEMGRAPH_EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Dimension = getEnvInt("MEMGRAPH_EMBEDDING_DIMENSION", cfg.Embedding.Dimension)
	cfg.Embedding.TimeoutSeconds = getEnvInt("MEMGRAPH_EMBEDDING_TIMEOUT", cfg.Embedding.TimeoutSeconds)

	cfg.Vector.Backend = getEnv("MEMGRAPH_VECTOR_BACKEND", cfg.Vector.Backend)
	cfg.Vector.PostgresDSN = getEnv("MEMGRAPH_POSTGRES_DSN", cfg.Vector.PostgresDSN)

	cfg.Indexer.IntervalSeconds = getEnvInt("MEMGRAPH_INDEXER_INTERVAL", cfg.Indexer.IntervalSeconds)
	cfg.Indexer.BatchSize = getEnvInt("MEMGRAPH_INDEXER_BATCH_SIZE", cfg.Indexer.BatchSize)

	cfg.Security.APIToken = getEnv("MEMGRAPH_API_TOKEN", cfg.Security.APIToken)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	switch c.Vector.Backend {
	case "memory":
	case "pgvector":
		if c.Vector.PostgresDSN == "" {
			return fmt.Errorf("config: pgvector backend requires a postgres DSN")
		}
	default:
		return fmt.Errorf("config: unknown vector backend %q", c.Vector.Backend)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("config: embedding dimension must be positive")
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
