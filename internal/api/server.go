package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/todmy/claim-verifier/internal/resilience"
	"github.com/todmy/claim-verifier/internal/verification"
	"github.com/todmy/claim-verifier/pkg/models"
)

// Verifier is the engine surface the transport depends on
type Verifier interface {
	VerifyClaim(ctx context.Context, req verification.Request) (*models.VerificationResult, error)
	PerformanceMetrics() models.PerformanceMetrics
}

// DocumentStore is the listing and health surface of the document repository
type DocumentStore interface {
	List(ctx context.Context, limit, offset int) ([]models.Document, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// CachePinger reports cache reachability for health checks
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Options carries the server's dependencies and settings
type Options struct {
	Verifier       Verifier
	Documents      DocumentStore
	Cache          CachePinger
	Breaker        *resilience.Breaker
	Gatherer       prometheus.Gatherer
	Logger         *zap.Logger
	AllowedOrigins []string
}

type Server struct {
	router   *chi.Mux
	verifier Verifier
	docs     DocumentStore
	cache    CachePinger
	breaker  *resilience.Breaker
	gatherer prometheus.Gatherer
	log      *zap.Logger
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "https://*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		verifier: opts.Verifier,
		docs:     opts.Documents,
		cache:    opts.Cache,
		breaker:  opts.Breaker,
		gatherer: gatherer,
		log:      log,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health and metrics
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/verify", s.handleVerify)
		r.Get("/documents", s.handleListDocuments)
	})
}

// Handler returns the configured routes for mounting on an http.Server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
