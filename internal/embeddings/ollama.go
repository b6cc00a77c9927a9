package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	defaultOllamaURL     = "http://localhost:11434"
	defaultMaxConcurrent = 5
	defaultTimeout       = 30 * time.Second
)

// OllamaProvider generates embeddings via a local Ollama instance
type OllamaProvider struct {
	httpClient    *http.Client
	baseURL       string
	model         string
	maxConcurrent int
}

// OllamaOption configures the OllamaProvider
type OllamaOption func(*OllamaProvider)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) OllamaOption {
	return func(p *OllamaProvider) {
		p.baseURL = url
	}
}

// WithModel sets the embedding model
func WithModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		p.model = model
	}
}

// WithMaxConcurrent sets the max concurrent requests for batch embedding
func WithMaxConcurrent(n int) OllamaOption {
	return func(p *OllamaProvider) {
		p.maxConcurrent = n
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) OllamaOption {
	return func(p *OllamaProvider) {
		p.httpClient.Timeout = d
	}
}

// NewOllamaProvider creates an Ollama-backed embedding provider
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:       defaultOllamaURL,
		model:         ModelAllMiniLM,
		maxConcurrent: defaultMaxConcurrent,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ollamaRequest is the payload for the Ollama embeddings endpoint
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaResponse is the Ollama embeddings response
type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed generates an embedding for a single text
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaRequest{
		Model:  p.model,
		Prompt: text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var embResp ollamaResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	// Ollama returns float64; the rest of the pipeline works in float32
	vec := make([]float32, len(embResp.Embedding))
	for i, v := range embResp.Embedding {
		vec[i] = float32(v)
	}

	return vec, nil
}

// EmbedBatch generates embeddings for a list of texts with bounded concurrency
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	sem := make(chan struct{}, p.maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, text := range texts {
		wg.Add(1)

		go func(idx int, text string) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			vec, err := p.Embed(ctx, text)

			mu.Lock()
			defer mu.Unlock()

			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("text %d: %w", idx, err)
				return
			}

			results[idx] = vec
		}(i, text)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}

// Dimensions returns the embedding dimension for the configured model
func (p *OllamaProvider) Dimensions() int {
	return ModelDimensions(p.model)
}

// Model returns the configured model name
func (p *OllamaProvider) Model() string {
	return p.model
}
