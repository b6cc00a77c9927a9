package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "verifier"

// Recorder is the write-only metrics boundary the pipeline reports into.
// Implementations must never fail or block the caller.
type Recorder interface {
	// RecordVerification books one completed verification
	RecordVerification(status, source string, confidence float64, duration time.Duration, cached bool)

	// RecordCacheEvent counts a cache hit, miss, error or write_error per namespace
	RecordCacheEvent(cache, event string)

	// RecordDegradation counts a fallback taken for a pipeline component
	RecordDegradation(component string)

	// RecordBreakerTransition counts a circuit breaker state change
	RecordBreakerTransition(to string)
}

// Prometheus implements Recorder on a prometheus registry
type Prometheus struct {
	requests    *prometheus.CounterVec
	confidence  prometheus.Histogram
	duration    *prometheus.HistogramVec
	cacheEvents *prometheus.CounterVec
	degraded    *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewPrometheus registers the pipeline metrics with the given registerer
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_requests_total",
			Help:      "Total number of verification requests",
		}, []string{"status", "source"}),

		confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_confidence",
			Help:      "Distribution of verification confidence scores",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_duration_seconds",
			Help:      "Time spent processing verification requests",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"cached"}),

		cacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache lookups and write outcomes by namespace",
		}, []string{"cache", "event"}),

		degraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degradations_total",
			Help:      "Fallback paths taken by pipeline component",
		}, []string{"component"}),

		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions by target state",
		}, []string{"to"}),
	}
}

// RecordVerification books one completed verification
func (p *Prometheus) RecordVerification(status, source string, confidence float64, duration time.Duration, cached bool) {
	if source == "" {
		source = "unknown"
	}
	p.requests.WithLabelValues(status, source).Inc()
	p.confidence.Observe(confidence)

	cachedLabel := "false"
	if cached {
		cachedLabel = "true"
	}
	p.duration.WithLabelValues(cachedLabel).Observe(duration.Seconds())
}

// RecordCacheEvent counts a cache event
func (p *Prometheus) RecordCacheEvent(cache, event string) {
	p.cacheEvents.WithLabelValues(cache, event).Inc()
}

// RecordDegradation counts a fallback taken
func (p *Prometheus) RecordDegradation(component string) {
	p.degraded.WithLabelValues(component).Inc()
}

// RecordBreakerTransition counts a breaker state change
func (p *Prometheus) RecordBreakerTransition(to string) {
	p.transitions.WithLabelValues(to).Inc()
}

// Noop discards every observation. Used in tests and when metrics are disabled.
type Noop struct{}

func (Noop) RecordVerification(status, source string, confidence float64, duration time.Duration, cached bool) {
}
func (Noop) RecordCacheEvent(cache, event string) {}
func (Noop) RecordDegradation(component string)   {}
func (Noop) RecordBreakerTransition(to string)    {}
