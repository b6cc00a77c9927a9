package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/todmy/claim-verifier/pkg/models"
)

// DefaultTTL bounds both cache namespaces
const DefaultTTL = 5 * time.Minute

// CachedResult is the stored form of a verification result. The cached flag
// and processing time are per-request and never stored.
type CachedResult struct {
	Status     models.Status     `json:"status"`
	Confidence float64           `json:"confidence"`
	Citations  []models.Citation `json:"citations"`
}

// VerificationCache provides the pipeline's two cache namespaces:
// claim results and claim-vector search results.
type VerificationCache struct {
	store Store
	ttl   time.Duration
}

// NewVerificationCache wraps a store with the pipeline's namespaces
func NewVerificationCache(store Store, ttl time.Duration) *VerificationCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &VerificationCache{
		store: store,
		ttl:   ttl,
	}
}

// GetResult fetches a cached verification result by claim key
func (c *VerificationCache) GetResult(ctx context.Context, claimKey string) (*CachedResult, error) {
	data, err := c.store.Get(ctx, ResultKey(claimKey))
	if err != nil {
		return nil, err
	}

	var res CachedResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshal cached result: %w", err)
	}
	return &res, nil
}

// SetResult stores a verification result under a claim key
func (c *VerificationCache) SetResult(ctx context.Context, claimKey string, res CachedResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return c.store.Set(ctx, ResultKey(claimKey), data, c.ttl)
}

// GetSearch fetches cached candidates for a claim vector
func (c *VerificationCache) GetSearch(ctx context.Context, vector []float32) ([]models.CandidateDocument, error) {
	data, err := c.store.Get(ctx, SearchKey(vector))
	if err != nil {
		return nil, err
	}

	var docs []models.CandidateDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal cached search: %w", err)
	}
	return docs, nil
}

// SetSearch stores candidates for a claim vector
func (c *VerificationCache) SetSearch(ctx context.Context, vector []float32, docs []models.CandidateDocument) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal search results: %w", err)
	}
	return c.store.Set(ctx, SearchKey(vector), data, c.ttl)
}

// Ping reports the underlying store's health
func (c *VerificationCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
