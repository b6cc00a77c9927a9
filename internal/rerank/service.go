package rerank

import (
	"context"

	"go.uber.org/zap"

	"github.com/todmy/claim-verifier/pkg/models"
)

// Service runs a configured reranker and falls back to retrieval order when
// it fails. The fallback never errors, so verification always gets a ranking.
type Service struct {
	primary  Reranker
	fallback Reranker
	log      *zap.Logger
}

// NewService creates a rerank service. primary may be nil, in which case
// candidates keep their retrieval similarity as relevance.
func NewService(primary Reranker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		primary:  primary,
		fallback: &Passthrough{},
		log:      log,
	}
}

// Rerank orders candidates by relevance to the claim. The degraded flag is
// true when a configured reranker failed and the fallback ordering was used.
func (s *Service) Rerank(ctx context.Context, claim string, docs []models.CandidateDocument) ([]models.RankedDocument, bool) {
	if len(docs) == 0 {
		return nil, false
	}

	if s.primary == nil {
		ranked, _ := s.fallback.Rerank(ctx, claim, docs)
		return ranked, false
	}

	ranked, err := s.primary.Rerank(ctx, claim, docs)
	if err != nil {
		s.log.Warn("reranker failed, falling back to retrieval order",
			zap.String("reranker", s.primary.Name()),
			zap.Error(err))
		ranked, _ = s.fallback.Rerank(ctx, claim, docs)
		return ranked, true
	}

	return ranked, false
}

// Name reports the active reranker's name, or the fallback's when none is configured.
func (s *Service) Name() string {
	if s.primary == nil {
		return s.fallback.Name()
	}
	return s.primary.Name()
}
