package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/todmy/claim-verifier/internal/claim"
	"github.com/todmy/claim-verifier/internal/metrics"
	"github.com/todmy/claim-verifier/internal/resilience"
	"github.com/todmy/claim-verifier/internal/verification"
	"github.com/todmy/claim-verifier/pkg/models"
)

type stubVerifier struct {
	result *models.VerificationResult
	err    error
	snap   models.PerformanceMetrics
	last   verification.Request
}

func (s *stubVerifier) VerifyClaim(ctx context.Context, req verification.Request) (*models.VerificationResult, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubVerifier) PerformanceMetrics() models.PerformanceMetrics { return s.snap }

type stubDocs struct {
	docs       []models.Document
	count      int
	listErr    error
	pingErr    error
	lastLimit  int
	lastOffset int
}

func (s *stubDocs) List(ctx context.Context, limit, offset int) ([]models.Document, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.docs, nil
}

func (s *stubDocs) Count(ctx context.Context) (int, error) { return s.count, nil }
func (s *stubDocs) Ping(ctx context.Context) error         { return s.pingErr }

type stubCache struct{ err error }

func (s *stubCache) Ping(ctx context.Context) error { return s.err }

func newTestServer(v Verifier, docs DocumentStore, cache CachePinger, breaker *resilience.Breaker) *Server {
	if breaker == nil {
		breaker = resilience.New("retrieval", resilience.DefaultConfig(), zap.NewNop())
	}
	return NewServer(Options{
		Verifier:  v,
		Documents: docs,
		Cache:     cache,
		Breaker:   breaker,
		Gatherer:  prometheus.NewRegistry(),
		Logger:    zap.NewNop(),
	})
}

func TestHandleVerify(t *testing.T) {
	verifier := &stubVerifier{
		result: &models.VerificationResult{
			Status:     models.StatusVerified,
			Confidence: 0.92,
			Citations: []models.Citation{
				{DocumentID: "doc-1", CID: "bafy-1", Title: "Astronomy", Snippet: "The Earth orbits the Sun.", Similarity: 0.9},
			},
			ProcessingTimeMs: 42,
		},
	}
	srv := newTestServer(verifier, &stubDocs{}, &stubCache{}, nil)

	body := `{"claim_text": "The Earth orbits around the Sun", "source": "browser-extension", "extension_version": "1.4.2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res models.VerificationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, models.StatusVerified, res.Status)
	assert.Equal(t, 0.92, res.Confidence)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, int64(42), res.ProcessingTimeMs)

	assert.Equal(t, "The Earth orbits around the Sun", verifier.last.ClaimText)
	assert.Equal(t, "browser-extension", verifier.last.Source)
	assert.Equal(t, "1.4.2", verifier.last.ExtensionVersion)
}

func TestHandleVerifyInvalidBody(t *testing.T) {
	srv := newTestServer(&stubVerifier{}, &stubDocs{}, &stubCache{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestHandleVerifyValidationError(t *testing.T) {
	srv := newTestServer(&stubVerifier{err: claim.ErrTooShort}, &stubDocs{}, &stubCache{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", strings.NewReader(`{"claim_text": "short"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), claim.ErrTooShort.Error())
}

func TestHandleListDocuments(t *testing.T) {
	docs := &stubDocs{
		docs: []models.Document{
			{ID: "doc-1", CID: "bafy-1", Title: "First", MimeType: "text/plain"},
			{ID: "doc-2", CID: "bafy-2", Title: "Second", MimeType: "application/pdf"},
		},
		count: 42,
	}
	srv := newTestServer(&stubVerifier{}, docs, &stubCache{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res documentList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Len(t, res.Documents, 2)
	assert.Equal(t, 42, res.TotalCount)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 10, res.Offset)

	assert.Equal(t, 5, docs.lastLimit)
	assert.Equal(t, 10, docs.lastOffset)
}

func TestHandleListDocumentsDefaultsAndClamps(t *testing.T) {
	docs := &stubDocs{count: 0}
	srv := newTestServer(&stubVerifier{}, docs, &stubCache{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, docs.lastLimit)
	assert.Equal(t, 0, docs.lastOffset)
	// Empty listings marshal as an array, not null
	assert.Contains(t, rec.Body.String(), `"documents":[]`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=500&offset=-3", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, docs.lastLimit)
	assert.Equal(t, 0, docs.lastOffset)
}

func TestHandleListDocumentsError(t *testing.T) {
	docs := &stubDocs{listErr: errors.New("db down")}
	srv := newTestServer(&stubVerifier{}, docs, &stubCache{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleHealthHealthy(t *testing.T) {
	verifier := &stubVerifier{snap: models.PerformanceMetrics{TotalRequests: 7, CacheHitRate: 0.5}}
	srv := newTestServer(verifier, &stubDocs{}, &stubCache{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "healthy", res.Status)
	assert.True(t, res.Services.Database)
	assert.True(t, res.Services.Cache)
	assert.Equal(t, "CLOSED", res.Services.CircuitBreaker)
	assert.Equal(t, int64(7), res.Performance.TotalRequests)
}

func TestHandleHealthDegradedDatabase(t *testing.T) {
	srv := newTestServer(&stubVerifier{}, &stubDocs{pingErr: errors.New("db down")}, &stubCache{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var res healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "degraded", res.Status)
	assert.False(t, res.Services.Database)
}

func TestHandleHealthDegradedBreakerOpen(t *testing.T) {
	breaker := resilience.New("retrieval", resilience.Config{FailureThreshold: 1}, zap.NewNop())
	_ = breaker.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})
	require.Equal(t, resilience.StateOpen, breaker.State())

	srv := newTestServer(&stubVerifier{}, &stubDocs{}, &stubCache{}, breaker)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var res healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "degraded", res.Status)
	assert.Equal(t, "OPEN", res.Services.CircuitBreaker)
}

func TestHandleHealthCacheOutageOnly(t *testing.T) {
	srv := newTestServer(&stubVerifier{}, &stubDocs{}, &stubCache{err: errors.New("redis down")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "healthy", res.Status)
	assert.False(t, res.Services.Cache)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := metrics.NewPrometheus(reg)
	sink.RecordDegradation("rerank")

	srv := NewServer(Options{
		Verifier:  &stubVerifier{},
		Documents: &stubDocs{},
		Cache:     &stubCache{},
		Breaker:   resilience.New("retrieval", resilience.DefaultConfig(), zap.NewNop()),
		Gatherer:  reg,
		Logger:    zap.NewNop(),
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "verifier_degradations_total")
}
