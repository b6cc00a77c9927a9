package rerank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/todmy/claim-verifier/internal/embeddings"
	"github.com/todmy/claim-verifier/pkg/models"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction,
// 0 means orthogonal, and -1 means opposite direction.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	if len(a) == 0 {
		return 0
	}

	// Convert float32 slices to float64 for gonum
	aFloat64 := make([]float64, len(a))
	bFloat64 := make([]float64, len(b))
	for i := range a {
		aFloat64[i] = float64(a[i])
		bFloat64[i] = float64(b[i])
	}

	dotProduct := floats.Dot(aFloat64, bFloat64)

	magA := math.Sqrt(floats.Dot(aFloat64, aFloat64))
	magB := math.Sqrt(floats.Dot(bFloat64, bFloat64))

	// Avoid division by zero
	if magA == 0 || magB == 0 {
		return 0
	}

	return dotProduct / (magA * magB)
}

// CosineReranker reranks locally: it embeds each candidate's content and
// scores it by cosine similarity against the claim embedding.
type CosineReranker struct {
	provider embeddings.Provider
}

// NewCosineReranker creates a local embedding-based reranker
func NewCosineReranker(provider embeddings.Provider) *CosineReranker {
	return &CosineReranker{provider: provider}
}

// Rerank embeds the claim and candidates, then sorts by cosine similarity
func (r *CosineReranker) Rerank(ctx context.Context, claim string, docs []models.CandidateDocument) ([]models.RankedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	claimVec, err := r.provider.Embed(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("embed claim: %w", err)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	docVecs, err := r.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}

	ranked := make([]models.RankedDocument, len(docs))
	for i, doc := range docs {
		ranked[i] = models.RankedDocument{
			CandidateDocument: doc,
			RelevanceScore:    clamp01(CosineSimilarity(claimVec, docVecs[i])),
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	return ranked, nil
}

// Name identifies the reranker
func (r *CosineReranker) Name() string {
	return "cosine"
}
