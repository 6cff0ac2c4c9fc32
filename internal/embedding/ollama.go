package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaProvider generates embeddings via the Ollama /api/embed endpoint.
// Every call goes through the circuit breaker.
type OllamaProvider struct {
	baseURL   string
	model     string
	dimension int
	timeout   time.Duration
	client    *http.Client
	breaker   *Breaker
}

// OllamaConfig holds Ollama provider configuration.
type OllamaConfig struct {
	// BaseURL is the Ollama server address (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model name (default: nomic-embed-text).
	Model string

	// Dimension is the output vector dimension (default: 768).
	Dimension int

	// Timeout is the per-request timeout (default: 10s).
	Timeout time.Duration

	// Breaker overrides circuit breaker defaults when non-zero.
	Breaker BreakerConfig
}

// embedRequest is the /api/embed request body. Input accepts a single string
// or an array of strings.
type embedRequest struct {
	Model string      `json:"model"`
	Input interface{} `json:"input"`
}

// embedResponse is the /api/embed response body.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaProvider creates an Ollama embedding provider, filling in defaults
// for zero-valued config fields.
func NewOllamaProvider(config OllamaConfig) *OllamaProvider {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "nomic-embed-text"
	}
	if config.Dimension == 0 {
		config.Dimension = 768
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &OllamaProvider{
		baseURL:   config.BaseURL,
		model:     config.Model,
		dimension: config.Dimension,
		timeout:   config.Timeout,
		client:    &http.Client{Timeout: config.Timeout},
		breaker:   NewBreaker(config.Breaker),
	}
}

// Embed generates an embedding vector for a single text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embedding vectors for multiple texts in one request.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result, err := p.breaker.Execute(ctx, func() (interface{}, error) {
		return p.embed(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}

// embed is the raw HTTP call without circuit breaker wrapping.
func (p *OllamaProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	jsonData, err := json.Marshal(embedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach embedding backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding backend returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}

	if len(respData.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding backend returned %d vectors for %d inputs",
			len(respData.Embeddings), len(texts))
	}
	for i, vec := range respData.Embeddings {
		if len(vec) == 0 {
			return nil, fmt.Errorf("embedding backend returned empty vector for input %d", i)
		}
	}

	return respData.Embeddings, nil
}

// Dimension returns the configured vector dimension.
func (p *OllamaProvider) Dimension() int { return p.dimension }

// Model returns the configured model name.
func (p *OllamaProvider) Model() string { return p.model }

// HealthCheck verifies the Ollama server responds on /api/version. It bypasses
// the circuit breaker so a recovering backend can be observed while the
// circuit is still open.
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding backend health check returned status %d", resp.StatusCode)
	}
	return nil
}

// BreakerState exposes the circuit state for the stats endpoint.
func (p *OllamaProvider) BreakerState() string { return p.breaker.State() }
