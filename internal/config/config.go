package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Embedding EmbeddingConfig
	Rerank    RerankConfig
	Breaker   BreakerConfig
	Search    SearchConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Environment    string
	AllowedOrigins string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type CacheConfig struct {
	Backend  string // "memory", "redis" or "tiered"
	RedisURL string
	TTL      time.Duration
}

type EmbeddingConfig struct {
	Provider      string // "openai" or "ollama"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	OllamaBaseURL string
	OllamaModel   string
}

type RerankConfig struct {
	Provider string // "http", "cosine" or "" for none
	URL      string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	CallTimeout      time.Duration
	FailureWindow    time.Duration
}

type SearchConfig struct {
	Limit               int
	SimilarityThreshold float64
}

type LogConfig struct {
	Level    string
	FilePath string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading configuration from environment")
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("GO_ENV", "development"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", "postgres://localhost/verifier?sslmode=disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Cache: CacheConfig{
			Backend:  getEnv("CACHE_BACKEND", "memory"),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
			TTL:      getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
		Embedding: EmbeddingConfig{
			Provider:      getEnv("EMBEDDING_PROVIDER", "ollama"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_EMBEDDING_MODEL", "all-minilm"),
		},
		Rerank: RerankConfig{
			Provider: getEnv("RERANK_PROVIDER", ""),
			URL:      getEnv("RERANK_URL", ""),
			APIKey:   getEnv("RERANK_API_KEY", ""),
			Model:    getEnv("RERANK_MODEL", "jina-reranker-v2-base-multilingual"),
			Timeout:  getEnvAsDuration("RERANK_TIMEOUT", 10*time.Second),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			ResetTimeout:     getEnvAsDuration("BREAKER_RESET_TIMEOUT", 30*time.Second),
			CallTimeout:      getEnvAsDuration("BREAKER_CALL_TIMEOUT", 10*time.Second),
			FailureWindow:    getEnvAsDuration("BREAKER_FAILURE_WINDOW", time.Minute),
		},
		Search: SearchConfig{
			Limit:               getEnvAsInt("SEARCH_LIMIT", 10),
			SimilarityThreshold: getEnvAsFloat("SEARCH_SIMILARITY_THRESHOLD", 0.3),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE_PATH", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
