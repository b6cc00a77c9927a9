package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todmy/claim-verifier/pkg/models"
)

// fakeProvider returns canned vectors keyed by input text.
type fakeProvider struct {
	vectors map[string][]float32
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeProvider) Dimensions() int { return 3 }
func (f *fakeProvider) Model() string   { return "fake" }

// failingReranker always errors, for exercising the fallback path.
type failingReranker struct{}

func (f *failingReranker) Rerank(ctx context.Context, claim string, docs []models.CandidateDocument) ([]models.RankedDocument, error) {
	return nil, errors.New("rerank service unavailable")
}

func (f *failingReranker) Name() string { return "failing" }

func candidates() []models.CandidateDocument {
	return []models.CandidateDocument{
		{ID: "doc-1", CID: "bafy1", Title: "First", Content: "alpha content", Similarity: 0.9},
		{ID: "doc-2", CID: "bafy2", Title: "Second", Content: "beta content", Similarity: 0.6},
		{ID: "doc-3", CID: "bafy3", Title: "Third", Content: "gamma content", Similarity: 0.4},
	}
}

func TestPassthrough_PreservesRetrievalOrder(t *testing.T) {
	p := &Passthrough{}

	ranked, err := p.Rerank(context.Background(), "some claim", candidates())
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "doc-1", ranked[0].ID)
	assert.Equal(t, "doc-2", ranked[1].ID)
	assert.Equal(t, "doc-3", ranked[2].ID)
	assert.InDelta(t, 0.9, ranked[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.6, ranked[1].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.4, ranked[2].RelevanceScore, 1e-9)
}

func TestPassthrough_ClampsSimilarity(t *testing.T) {
	p := &Passthrough{}
	docs := []models.CandidateDocument{
		{ID: "hot", Content: "a", Similarity: 1.3},
		{ID: "cold", Content: "b", Similarity: -0.1},
	}

	ranked, err := p.Rerank(context.Background(), "claim", docs)
	require.NoError(t, err)

	assert.Equal(t, 1.0, ranked[0].RelevanceScore)
	assert.Equal(t, 0.0, ranked[1].RelevanceScore)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", []float32{}, []float32{}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosineReranker_OrdersBySimilarity(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{
		"the claim":     {1, 0, 0},
		"alpha content": {0, 1, 0},     // orthogonal
		"beta content":  {1, 0, 0},     // identical
		"gamma content": {0.7, 0.7, 0}, // ~0.707
	}}
	r := NewCosineReranker(provider)

	ranked, err := r.Rerank(context.Background(), "the claim", candidates())
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "doc-2", ranked[0].ID)
	assert.Equal(t, "doc-3", ranked[1].ID)
	assert.Equal(t, "doc-1", ranked[2].ID)
	assert.InDelta(t, 1.0, ranked[0].RelevanceScore, 1e-6)
	assert.InDelta(t, 0.7071, ranked[1].RelevanceScore, 1e-3)
	assert.InDelta(t, 0.0, ranked[2].RelevanceScore, 1e-6)
}

func TestCosineReranker_EmptyCandidates(t *testing.T) {
	r := NewCosineReranker(&fakeProvider{})

	ranked, err := r.Rerank(context.Background(), "claim", nil)
	require.NoError(t, err)
	assert.Nil(t, ranked)
}

func TestCosineReranker_EmbedError(t *testing.T) {
	r := NewCosineReranker(&fakeProvider{vectors: map[string][]float32{}})

	_, err := r.Rerank(context.Background(), "unknown claim", candidates())
	assert.Error(t, err)
}

func TestHTTPReranker_Rerank(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "the claim", req.Query)
		assert.Equal(t, []string{"alpha content", "beta content", "gamma content"}, req.Documents)
		assert.Equal(t, 3, req.TopN)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(rerankResponse{Results: []rerankResult{
			{Index: 2, RelevanceScore: 0.95},
			{Index: 0, RelevanceScore: 0.40},
			{Index: 1, RelevanceScore: 0.10},
		}})
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL, WithAPIKey("secret"), WithModel("test-model"))

	ranked, err := r.Rerank(context.Background(), "the claim", candidates())
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "doc-3", ranked[0].ID)
	assert.InDelta(t, 0.95, ranked[0].RelevanceScore, 1e-9)
	assert.Equal(t, "doc-1", ranked[1].ID)
	assert.InDelta(t, 0.40, ranked[1].RelevanceScore, 1e-9)
	assert.Equal(t, "doc-2", ranked[2].ID)
	assert.InDelta(t, 0.10, ranked[2].RelevanceScore, 1e-9)
}

func TestHTTPReranker_AppendsDroppedCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Results: []rerankResult{
			{Index: 1, RelevanceScore: 0.8},
		}})
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL)

	ranked, err := r.Rerank(context.Background(), "the claim", candidates())
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	// The scored candidate comes first, dropped ones keep retrieval similarity.
	assert.Equal(t, "doc-2", ranked[0].ID)
	assert.InDelta(t, 0.8, ranked[0].RelevanceScore, 1e-9)
	assert.Equal(t, "doc-1", ranked[1].ID)
	assert.InDelta(t, 0.9, ranked[1].RelevanceScore, 1e-9)
	assert.Equal(t, "doc-3", ranked[2].ID)
	assert.InDelta(t, 0.4, ranked[2].RelevanceScore, 1e-9)
}

func TestHTTPReranker_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r := NewHTTPReranker(server.URL)

	_, err := r.Rerank(context.Background(), "the claim", candidates())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPReranker_EmptyCandidates(t *testing.T) {
	r := NewHTTPReranker("http://localhost:0")

	ranked, err := r.Rerank(context.Background(), "claim", nil)
	require.NoError(t, err)
	assert.Nil(t, ranked)
}

func TestService_UsesPrimary(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{
		"the claim":     {1, 0, 0},
		"alpha content": {1, 0, 0},
		"beta content":  {0, 1, 0},
		"gamma content": {0, 0, 1},
	}}
	svc := NewService(NewCosineReranker(provider), nil)

	ranked, degraded := svc.Rerank(context.Background(), "the claim", candidates())

	assert.False(t, degraded)
	require.Len(t, ranked, 3)
	assert.Equal(t, "doc-1", ranked[0].ID)
	assert.Equal(t, "cosine", svc.Name())
}

func TestService_FallsBackOnPrimaryError(t *testing.T) {
	svc := NewService(&failingReranker{}, nil)

	ranked, degraded := svc.Rerank(context.Background(), "the claim", candidates())

	assert.True(t, degraded)
	require.Len(t, ranked, 3)
	// Fallback keeps retrieval order with similarity as relevance.
	assert.Equal(t, "doc-1", ranked[0].ID)
	assert.InDelta(t, 0.9, ranked[0].RelevanceScore, 1e-9)
	assert.Equal(t, "doc-3", ranked[2].ID)
}

func TestService_NoPrimaryIsNotDegraded(t *testing.T) {
	svc := NewService(nil, nil)

	ranked, degraded := svc.Rerank(context.Background(), "the claim", candidates())

	assert.False(t, degraded)
	require.Len(t, ranked, 3)
	assert.Equal(t, "passthrough", svc.Name())
}

func TestService_EmptyCandidates(t *testing.T) {
	svc := NewService(&failingReranker{}, nil)

	ranked, degraded := svc.Rerank(context.Background(), "the claim", nil)

	assert.False(t, degraded)
	assert.Nil(t, ranked)
}
