package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/todmy/claim-verifier/internal/api"
	"github.com/todmy/claim-verifier/internal/cache"
	"github.com/todmy/claim-verifier/internal/config"
	"github.com/todmy/claim-verifier/internal/embeddings"
	"github.com/todmy/claim-verifier/internal/logger"
	"github.com/todmy/claim-verifier/internal/metrics"
	"github.com/todmy/claim-verifier/internal/monitor"
	"github.com/todmy/claim-verifier/internal/rerank"
	"github.com/todmy/claim-verifier/internal/resilience"
	"github.com/todmy/claim-verifier/internal/storage"
	"github.com/todmy/claim-verifier/internal/verification"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Log.Level, cfg.Log.FilePath, cfg.Server.Environment == "development")
	defer log.Sync()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}
	cancelPing()

	store := newCacheStore(cfg, log)
	defer store.Close()

	verificationCache := cache.NewVerificationCache(store, cfg.Cache.TTL)

	provider, err := newEmbeddingProvider(cfg)
	if err != nil {
		log.Fatal("failed to configure embedding provider", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	sink := metrics.NewPrometheus(registry)

	breaker := resilience.New("retrieval", resilience.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
		CallTimeout:      cfg.Breaker.CallTimeout,
		FailureWindow:    cfg.Breaker.FailureWindow,
		OnTransition: func(from, to resilience.State) {
			sink.RecordBreakerTransition(to.String())
		},
	}, log)

	documents := storage.NewPostgresDocumentRepository(db)
	analytics := storage.NewPostgresVerificationRepository(db)

	engine, err := verification.NewEngine(verification.Options{
		Provider:            provider,
		Retriever:           documents,
		Reranker:            rerank.NewService(newPrimaryReranker(cfg, provider, log), log),
		Cache:               verificationCache,
		Breaker:             breaker,
		Monitor:             monitor.New(),
		Metrics:             sink,
		Analytics:           analytics,
		Logger:              log,
		SearchLimit:         cfg.Search.Limit,
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
	})
	if err != nil {
		log.Fatal("failed to build verification engine", zap.Error(err))
	}

	server := api.NewServer(api.Options{
		Verifier:       engine,
		Documents:      documents,
		Cache:          verificationCache,
		Breaker:        breaker,
		Gatherer:       registry,
		Logger:         log,
		AllowedOrigins: splitOrigins(cfg.Server.AllowedOrigins),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting claim verifier",
			zap.String("port", cfg.Server.Port),
			zap.String("embedding_model", provider.Model()),
			zap.String("cache_backend", cfg.Cache.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", zap.Error(err))
	}

	// Let detached cache and analytics writes drain
	engine.Close()
}

// newCacheStore builds the configured cache backend. An unreachable Redis is
// survivable: reads degrade to misses, so startup never fails on it.
func newCacheStore(cfg *config.Config, log *zap.Logger) cache.Store {
	switch cfg.Cache.Backend {
	case "redis", "tiered":
		remote, err := cache.NewRedisStore(cfg.Cache.RedisURL)
		if err != nil {
			log.Warn("invalid redis url, falling back to memory cache", zap.Error(err))
			return cache.NewMemoryStore(cfg.Cache.TTL, 10*time.Minute)
		}

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := remote.Ping(pingCtx); err != nil {
			log.Warn("redis not responding", zap.Error(err))
		}

		if cfg.Cache.Backend == "tiered" {
			return cache.NewTieredStore(cache.NewMemoryStore(cfg.Cache.TTL, 10*time.Minute), remote)
		}
		return remote

	default:
		return cache.NewMemoryStore(cfg.Cache.TTL, 10*time.Minute)
	}
}

func newEmbeddingProvider(cfg *config.Config) (embeddings.Provider, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embeddings.NewOpenAIProvider(cfg.Embedding.OpenAIKey, cfg.Embedding.OpenAIBaseURL, cfg.Embedding.OpenAIModel)
	default:
		return embeddings.NewOllamaProvider(
			embeddings.WithBaseURL(cfg.Embedding.OllamaBaseURL),
			embeddings.WithModel(cfg.Embedding.OllamaModel),
		), nil
	}
}

// newPrimaryReranker returns nil when no external reranker is configured;
// the rerank service then keeps retrieval order.
func newPrimaryReranker(cfg *config.Config, provider embeddings.Provider, log *zap.Logger) rerank.Reranker {
	switch cfg.Rerank.Provider {
	case "http":
		if cfg.Rerank.URL == "" {
			log.Warn("rerank provider set to http but RERANK_URL is empty, reranking disabled")
			return nil
		}
		return rerank.NewHTTPReranker(cfg.Rerank.URL,
			rerank.WithAPIKey(cfg.Rerank.APIKey),
			rerank.WithModel(cfg.Rerank.Model),
			rerank.WithTimeout(cfg.Rerank.Timeout),
		)
	case "cosine":
		return rerank.NewCosineReranker(provider)
	default:
		return nil
	}
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
