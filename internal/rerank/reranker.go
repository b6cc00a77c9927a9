package rerank

import (
	"context"

	"github.com/todmy/claim-verifier/pkg/models"
)

// Reranker re-orders candidates by relevance to the claim text.
// Implementations return one RankedDocument per candidate; when a reranker
// fails, callers fall back to the retrieval similarity.
type Reranker interface {
	// Rerank scores candidates against the claim
	Rerank(ctx context.Context, claim string, docs []models.CandidateDocument) ([]models.RankedDocument, error)

	// Name identifies the reranker for logging
	Name() string
}

// Passthrough assigns the retrieval similarity as relevance and preserves
// the original order. It is the degradation fallback and never fails.
type Passthrough struct{}

// Rerank maps each candidate's similarity to its relevance score
func (Passthrough) Rerank(ctx context.Context, claim string, docs []models.CandidateDocument) ([]models.RankedDocument, error) {
	ranked := make([]models.RankedDocument, len(docs))
	for i, doc := range docs {
		ranked[i] = models.RankedDocument{
			CandidateDocument: doc,
			RelevanceScore:    clamp01(doc.Similarity),
		}
	}
	return ranked, nil
}

// Name identifies the fallback
func (Passthrough) Name() string {
	return "passthrough"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
