package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMongoDB = "mongodb"
	BackendQdrant  = "qdrant"
	BackendMemory  = "memory"

	ProviderHTTP      = "http"
	ProviderLangChain = "langchain"
)

type Config struct {
	AppPort  int
	LogLevel string

	StoreBackend    string
	MongoURI        string
	MongoDatabase   string
	CollectionName  string
	VectorIndexName string
	QdrantHost      string
	QdrantPort      int
	QdrantAPIKey    string
	AllowRecreate   bool

	OpenAIAPIKey          string
	EmbeddingBaseURL      string
	EmbeddingModel        string
	EmbeddingDimension    int
	EmbeddingProvider     string
	EmbeddingRequestsPerS float64
	ChatModel             string

	MaxURLs           int
	SourcesFile       string
	ProxyURL          string
	CookieDBPath      string
	FetchTimeout      time.Duration
	NavigationTimeout time.Duration
	RetryAttempts     int
	RetryBaseDelay    time.Duration

	CronSecret string
}

// Load reads the configuration from the environment. Every missing or
// malformed value is reported in the returned error.
func Load() (*Config, error) {
	e := &env{}

	cfg := &Config{
		AppPort:  e.intOr("APP_PORT", 8080),
		LogLevel: e.stringOr("LOG_LEVEL", "info"),

		StoreBackend:    strings.ToLower(e.stringOr("STORE_BACKEND", BackendMongoDB)),
		MongoDatabase:   e.stringOr("MONGODB_DATABASE", "vector11"),
		CollectionName:  e.stringOr("COLLECTION_NAME", "football_docs"),
		VectorIndexName: e.stringOr("VECTOR_INDEX_NAME", "vector_index"),
		QdrantHost:      e.stringOr("QDRANT_HOST", "localhost"),
		QdrantPort:      e.intOr("QDRANT_PORT", 6334),
		QdrantAPIKey:    e.stringOr("QDRANT_API_KEY", ""),
		AllowRecreate:   e.boolOr("ALLOW_RECREATE", false),

		OpenAIAPIKey:          e.required("OPENAI_API_KEY"),
		EmbeddingBaseURL:      e.stringOr("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:        e.stringOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension:    e.intOr("EMBEDDING_DIMENSION", 1024),
		EmbeddingProvider:     strings.ToLower(e.stringOr("EMBEDDING_PROVIDER", ProviderHTTP)),
		EmbeddingRequestsPerS: e.floatOr("EMBEDDING_REQUESTS_PER_SECOND", 0),
		ChatModel:             e.stringOr("CHAT_MODEL", "gpt-4o-mini"),

		MaxURLs:           e.intOr("MAX_URLS", 0),
		SourcesFile:       e.stringOr("SOURCES_FILE", ""),
		ProxyURL:          e.stringOr("PROXY_URL", ""),
		CookieDBPath:      e.stringOr("COOKIE_DB_PATH", ".data/cookies.db"),
		FetchTimeout:      e.durationOr("FETCH_TIMEOUT", 30*time.Second),
		NavigationTimeout: e.durationOr("NAVIGATION_TIMEOUT", 45*time.Second),
		RetryAttempts:     e.intOr("RETRY_ATTEMPTS", 3),
		RetryBaseDelay:    e.durationOr("RETRY_BASE_DELAY", time.Second),

		CronSecret: e.stringOr("CRON_SECRET", ""),
	}

	switch cfg.StoreBackend {
	case BackendMongoDB:
		cfg.MongoURI = e.required("MONGODB_URI")
	case BackendQdrant, BackendMemory:
	default:
		e.fail(fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.StoreBackend))
	}
	switch cfg.EmbeddingProvider {
	case ProviderHTTP, ProviderLangChain:
	default:
		e.fail(fmt.Errorf("EMBEDDING_PROVIDER: unknown provider %q", cfg.EmbeddingProvider))
	}
	if cfg.EmbeddingDimension <= 0 {
		e.fail(errors.New("EMBEDDING_DIMENSION must be positive"))
	}
	if cfg.RetryAttempts <= 0 {
		e.fail(errors.New("RETRY_ATTEMPTS must be positive"))
	}

	if err := e.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// env collects lookup failures so Load can report all of them at once.
type env struct {
	errs []error
}

func (e *env) fail(err error) {
	e.errs = append(e.errs, err)
}

func (e *env) err() error {
	return errors.Join(e.errs...)
}

func getEnv(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

func (e *env) required(key string) string {
	value, ok := getEnv(key)
	if !ok {
		e.fail(fmt.Errorf("environment variable %s is required but not set", key))
	}
	return value
}

func (e *env) stringOr(key, def string) string {
	if value, ok := getEnv(key); ok {
		return value
	}
	return def
}

func (e *env) intOr(key string, def int) int {
	value, ok := getEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) floatOr(key string, def float64) float64 {
	value, ok := getEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (e *env) boolOr(key string, def bool) bool {
	value, ok := getEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *env) durationOr(key string, def time.Duration) time.Duration {
	value, ok := getEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
