package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/todmy/claim-verifier/internal/cache"
	"github.com/todmy/claim-verifier/internal/citation"
	"github.com/todmy/claim-verifier/internal/claim"
	"github.com/todmy/claim-verifier/internal/confidence"
	"github.com/todmy/claim-verifier/internal/embeddings"
	"github.com/todmy/claim-verifier/internal/metrics"
	"github.com/todmy/claim-verifier/internal/monitor"
	"github.com/todmy/claim-verifier/internal/rerank"
	"github.com/todmy/claim-verifier/internal/resilience"
	"github.com/todmy/claim-verifier/internal/storage"
	"github.com/todmy/claim-verifier/pkg/models"
)

const (
	defaultSearchLimit     = 10
	defaultSearchThreshold = 0.3

	// cacheableConfidence is the floor below which results are not worth caching
	cacheableConfidence = 0.3

	// detachTimeout bounds fire-and-forget cache and analytics writes
	detachTimeout = 5 * time.Second
)

// Request is a single claim verification call
type Request struct {
	ClaimText        string
	Source           string
	ExtensionVersion string
}

// Retriever finds reference documents near a claim vector
type Retriever interface {
	FindSimilar(ctx context.Context, embedding pgvector.Vector, limit int, threshold float64) ([]models.CandidateDocument, error)
}

// Analytics records completed verifications. Implementations are called on a
// detached context and their errors are logged, never surfaced.
type Analytics interface {
	Record(ctx context.Context, rec *storage.VerificationRecord) error
}

// Engine runs the verification pipeline: result-cache lookup, breaker-wrapped
// retrieval, degradable reranking, confidence aggregation and citation
// building. VerifyClaim never fails for upstream outages; only invalid input
// produces an error.
type Engine struct {
	provider  embeddings.Provider
	retriever Retriever
	reranker  *rerank.Service
	cache     *cache.VerificationCache
	breaker   *resilience.Breaker
	monitor   *monitor.Monitor
	metrics   metrics.Recorder
	analytics Analytics
	log       *zap.Logger

	searchLimit     int
	searchThreshold float64

	detached sync.WaitGroup
}

// Options configures an Engine. Provider, Retriever and Cache are required;
// everything else has a working default. Analytics may be nil to disable
// verification recording.
type Options struct {
	Provider  embeddings.Provider
	Retriever Retriever
	Reranker  *rerank.Service
	Cache     *cache.VerificationCache
	Breaker   *resilience.Breaker
	Monitor   *monitor.Monitor
	Metrics   metrics.Recorder
	Analytics Analytics
	Logger    *zap.Logger

	SearchLimit         int
	SimilarityThreshold float64
}

// NewEngine wires the pipeline from its dependencies
func NewEngine(opts Options) (*Engine, error) {
	if opts.Provider == nil {
		return nil, errors.New("verification: embedding provider is required")
	}
	if opts.Retriever == nil {
		return nil, errors.New("verification: document retriever is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("verification: cache is required")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reranker := opts.Reranker
	if reranker == nil {
		reranker = rerank.NewService(nil, log)
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.New("retrieval", resilience.DefaultConfig(), log)
	}
	mon := opts.Monitor
	if mon == nil {
		mon = monitor.New()
	}
	var recorder metrics.Recorder = opts.Metrics
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	limit := opts.SearchLimit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = defaultSearchThreshold
	}

	return &Engine{
		provider:        opts.Provider,
		retriever:       opts.Retriever,
		reranker:        reranker,
		cache:           opts.Cache,
		breaker:         breaker,
		monitor:         mon,
		metrics:         recorder,
		analytics:       opts.Analytics,
		log:             log,
		searchLimit:     limit,
		searchThreshold: threshold,
	}, nil
}

// VerifyClaim verifies a single claim against the reference corpus. A non-nil
// error means the claim text itself was unacceptable; every upstream failure
// degrades to an UNKNOWN result instead.
func (e *Engine) VerifyClaim(ctx context.Context, req Request) (*models.VerificationResult, error) {
	start := time.Now()

	cl, err := claim.New(req.ClaimText)
	if err != nil {
		e.monitor.RecordRequest(time.Since(start), false, true)
		return nil, err
	}
	key := cl.Key()

	if hit, err := e.cache.GetResult(ctx, key); err == nil {
		elapsed := time.Since(start)
		res := &models.VerificationResult{
			Status:           hit.Status,
			Confidence:       hit.Confidence,
			Citations:        hit.Citations,
			Cached:           true,
			ProcessingTimeMs: elapsedMs(elapsed),
		}
		e.monitor.RecordRequest(elapsed, true, false)
		e.metrics.RecordCacheEvent("result", "hit")
		e.metrics.RecordVerification(string(res.Status), req.Source, res.Confidence, elapsed, true)
		return res, nil
	} else if errors.Is(err, cache.ErrMiss) {
		e.metrics.RecordCacheEvent("result", "miss")
	} else {
		// Unreachable cache reads as misses
		e.log.Warn("result cache read failed", zap.Error(err))
		e.metrics.RecordCacheEvent("result", "error")
	}

	res, failed := e.runPipeline(ctx, cl)

	elapsed := time.Since(start)
	res.ProcessingTimeMs = elapsedMs(elapsed)
	e.monitor.RecordRequest(elapsed, false, failed)
	e.metrics.RecordVerification(string(res.Status), req.Source, res.Confidence, elapsed, false)

	if res.Status != models.StatusUnknown && res.Confidence > cacheableConfidence {
		entry := cache.CachedResult{
			Status:     res.Status,
			Confidence: res.Confidence,
			Citations:  res.Citations,
		}
		e.detach(ctx, func(ctx context.Context) {
			if err := e.cache.SetResult(ctx, key, entry); err != nil {
				e.log.Warn("result cache write failed", zap.Error(err))
				e.metrics.RecordCacheEvent("result", "write_error")
			}
		})
	}

	e.recordAnalytics(ctx, req, cl, res)

	return res, nil
}

// PerformanceMetrics returns a snapshot of the pipeline's rolling statistics
func (e *Engine) PerformanceMetrics() models.PerformanceMetrics {
	return e.monitor.Snapshot()
}

// Close waits for outstanding detached writes to finish
func (e *Engine) Close() {
	e.detached.Wait()
}

// runPipeline executes the uncached verification path. The returned flag
// reports whether the retrieval phase failed and the result is a degraded
// placeholder rather than a real verdict.
func (e *Engine) runPipeline(ctx context.Context, cl *claim.Claim) (*models.VerificationResult, bool) {
	var candidates []models.CandidateDocument

	err := e.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		candidates, err = e.retrieve(ctx, cl.Text)
		return err
	})
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			e.log.Warn("retrieval rejected, circuit breaker open")
		} else {
			e.log.Warn("retrieval failed", zap.Error(err))
		}
		e.metrics.RecordDegradation("retrieval")
		return unknownResult(), true
	}

	if len(candidates) == 0 {
		return unknownResult(), false
	}

	ranked, degraded := e.reranker.Rerank(ctx, cl.Text, candidates)
	if degraded {
		e.metrics.RecordDegradation("rerank")
	}

	scores := confidence.ScoreDocuments(cl.Text, ranked)
	conf := confidence.Aggregate(scores)

	return &models.VerificationResult{
		Status:     confidence.Classify(conf),
		Confidence: conf,
		Citations:  citation.Build(ranked, scores),
	}, false
}

// retrieve embeds the claim and finds candidates, consulting the search cache
// before hitting the store. Runs under the breaker's call timeout.
func (e *Engine) retrieve(ctx context.Context, claimText string) ([]models.CandidateDocument, error) {
	vector, err := e.provider.Embed(ctx, claimText)
	if err != nil {
		return nil, fmt.Errorf("embed claim: %w", err)
	}

	if docs, err := e.cache.GetSearch(ctx, vector); err == nil {
		e.metrics.RecordCacheEvent("search", "hit")
		return docs, nil
	} else if errors.Is(err, cache.ErrMiss) {
		e.metrics.RecordCacheEvent("search", "miss")
	} else {
		e.log.Warn("search cache read failed", zap.Error(err))
		e.metrics.RecordCacheEvent("search", "error")
	}

	docs, err := e.retriever.FindSimilar(ctx, pgvector.NewVector(vector), e.searchLimit, e.searchThreshold)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	e.detach(ctx, func(ctx context.Context) {
		if err := e.cache.SetSearch(ctx, vector, docs); err != nil {
			e.log.Warn("search cache write failed", zap.Error(err))
			e.metrics.RecordCacheEvent("search", "write_error")
		}
	})

	return docs, nil
}

// recordAnalytics schedules a detached analytics write for a fresh result.
// Cache hits are never re-recorded.
func (e *Engine) recordAnalytics(ctx context.Context, req Request, cl *claim.Claim, res *models.VerificationResult) {
	if e.analytics == nil {
		return
	}

	docIDs := make([]string, 0, len(res.Citations))
	for _, c := range res.Citations {
		docIDs = append(docIDs, c.DocumentID)
	}

	rec := &storage.VerificationRecord{
		ClaimText:        cl.Text,
		Confidence:       res.Confidence,
		Status:           res.Status,
		DocumentIDs:      docIDs,
		Source:           req.Source,
		ExtensionVersion: req.ExtensionVersion,
		ProcessingTimeMs: res.ProcessingTimeMs,
	}

	e.detach(ctx, func(ctx context.Context) {
		if err := e.analytics.Record(ctx, rec); err != nil {
			e.log.Warn("analytics write failed", zap.Error(err))
		}
	})
}

// detach runs fn on a context severed from the request's cancellation, so
// fire-and-forget writes survive the response being sent. Close waits for
// stragglers on shutdown.
func (e *Engine) detach(parent context.Context, fn func(context.Context)) {
	e.detached.Add(1)
	go func() {
		defer e.detached.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), detachTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func unknownResult() *models.VerificationResult {
	return &models.VerificationResult{
		Status:     models.StatusUnknown,
		Confidence: 0,
		Citations:  []models.Citation{},
	}
}

// elapsedMs reports elapsed wall time in whole milliseconds, at least 1
func elapsedMs(elapsed time.Duration) int64 {
	if ms := elapsed.Milliseconds(); ms > 1 {
		return ms
	}
	return 1
}
