package monitor

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/todmy/claim-verifier/pkg/models"
)

// windowSize bounds the rolling response-time window
const windowSize = 1000

// Monitor tracks per-process pipeline health: request and error totals,
// cache hit counts, and a bounded rolling window of response times.
// Safe for concurrent use; recording never fails and never blocks on I/O.
type Monitor struct {
	mu sync.Mutex

	totalRequests int64
	errorCount    int64
	cacheHits     int64
	cacheMisses   int64

	// Circular response-time window in milliseconds. Grows to windowSize,
	// then the oldest sample is overwritten.
	samples []float64
	next    int
}

// New creates an empty monitor
func New() *Monitor {
	return &Monitor{
		samples: make([]float64, 0, windowSize),
	}
}

// RecordRequest books one verification call into the counters and the
// response-time window.
func (m *Monitor) RecordRequest(elapsed time.Duration, cacheHit, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	if failed {
		m.errorCount++
	}
	if cacheHit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}

	ms := float64(elapsed) / float64(time.Millisecond)
	if len(m.samples) < windowSize {
		m.samples = append(m.samples, ms)
		return
	}
	m.samples[m.next] = ms
	m.next = (m.next + 1) % windowSize
}

// Snapshot returns a point-in-time view of the monitor's state
func (m *Monitor) Snapshot() models.PerformanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := models.PerformanceMetrics{TotalRequests: m.totalRequests}

	if lookups := m.cacheHits + m.cacheMisses; lookups > 0 {
		snap.CacheHitRate = float64(m.cacheHits) / float64(lookups)
	}
	if m.totalRequests > 0 {
		snap.ErrorRate = float64(m.errorCount) / float64(m.totalRequests)
	}
	if len(m.samples) > 0 {
		snap.AverageProcessingTime = stat.Mean(m.samples, nil)
	}

	return snap
}
