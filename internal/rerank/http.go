package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/todmy/claim-verifier/pkg/models"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPReranker calls an external cross-encoder reranking service
type HTTPReranker struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
}

// HTTPOption configures the HTTPReranker
type HTTPOption func(*HTTPReranker)

// WithAPIKey sets the bearer token sent to the service
func WithAPIKey(key string) HTTPOption {
	return func(r *HTTPReranker) {
		r.apiKey = key
	}
}

// WithModel sets the reranking model
func WithModel(model string) HTTPOption {
	return func(r *HTTPReranker) {
		r.model = model
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) HTTPOption {
	return func(r *HTTPReranker) {
		r.httpClient.Timeout = d
	}
}

// NewHTTPReranker creates a reranker backed by a cross-encoder service
func NewHTTPReranker(url string, opts ...HTTPOption) *HTTPReranker {
	r := &HTTPReranker{
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		url: url,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// rerankRequest is the cross-encoder request payload
type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

// rerankResponse is the service response
type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Rerank scores candidates against the claim via the external service
func (r *HTTPReranker) Rerank(ctx context.Context, claim string, docs []models.CandidateDocument) ([]models.RankedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	reqBody := rerankRequest{
		Model:     r.model,
		Query:     claim,
		Documents: texts,
		TopN:      len(docs),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	var rrResp rerankResponse
	if err := json.Unmarshal(body, &rrResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	// The service returns results sorted by relevance; map them back by index
	ranked := make([]models.RankedDocument, 0, len(docs))
	seen := make([]bool, len(docs))
	for _, res := range rrResp.Results {
		if res.Index < 0 || res.Index >= len(docs) {
			continue
		}
		seen[res.Index] = true
		ranked = append(ranked, models.RankedDocument{
			CandidateDocument: docs[res.Index],
			RelevanceScore:    clamp01(res.RelevanceScore),
		})
	}

	// Candidates the service dropped keep their retrieval similarity
	for i, doc := range docs {
		if !seen[i] {
			ranked = append(ranked, models.RankedDocument{
				CandidateDocument: doc,
				RelevanceScore:    clamp01(doc.Similarity),
			})
		}
	}

	return ranked, nil
}

// Name identifies the reranker
func (r *HTTPReranker) Name() string {
	return "cross-encoder"
}
