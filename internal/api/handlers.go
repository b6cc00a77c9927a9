package api

import (
	"net/http"

	"github.com/todmy/claim-verifier/internal/resilience"
	"github.com/todmy/claim-verifier/pkg/models"
)

type healthServices struct {
	Database       bool   `json:"database"`
	Cache          bool   `json:"cache"`
	CircuitBreaker string `json:"circuit_breaker"`
}

type healthResponse struct {
	Status      string                    `json:"status"`
	Services    healthServices            `json:"services"`
	Performance models.PerformanceMetrics `json:"performance"`
}

// Health check with dependency probes. The service reports degraded when the
// document store is unreachable or the circuit breaker is open; a cache outage
// alone is survivable and only flagged.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := healthResponse{
		Status: "healthy",
		Services: healthServices{
			Database: s.docs.Ping(ctx) == nil,
			Cache:    s.cache.Ping(ctx) == nil,
		},
		Performance: s.verifier.PerformanceMetrics(),
	}

	state := s.breaker.State()
	resp.Services.CircuitBreaker = state.String()

	if !resp.Services.Database || state == resilience.StateOpen {
		resp.Status = "degraded"
	}

	status := http.StatusOK
	if resp.Status == "degraded" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
