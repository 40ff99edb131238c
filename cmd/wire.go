package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/config"
	"github.com/Ianodad/Vector11/crawler"
	"github.com/Ianodad/Vector11/pkg/chunking"
	"github.com/Ianodad/Vector11/pkg/embedding"
	"github.com/Ianodad/Vector11/pkg/memstore"
	"github.com/Ianodad/Vector11/pkg/mongodb"
	"github.com/Ianodad/Vector11/pkg/qdrantdb"
	"github.com/Ianodad/Vector11/pkg/retry"
	"github.com/Ianodad/Vector11/relevance"
	"github.com/Ianodad/Vector11/repository"
	"github.com/Ianodad/Vector11/search"
)

type services struct {
	cfg     *config.Config
	logger  *zap.Logger
	sources *config.SourceList
	store   repository.DocumentStore
	batcher *embedding.Batcher
	cookies *crawler.BoltStorage
	crawler *crawler.Crawler
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*services, error) {
	svc := &services{cfg: cfg, logger: logger}

	// =========
	// Sources
	// =========
	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	svc.sources = sources

	// =========
	// Document store
	// =========
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	svc.store = store
	policy := retry.Policy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay, Logger: logger}
	if err := ensureCollection(ctx, store, cfg.EmbeddingDimension, cfg.AllowRecreate, policy); err != nil {
		svc.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	// =========
	// Embedding client
	// =========
	client, err := newEmbeddingClient(cfg)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.batcher = embedding.NewBatcher(client, embedding.BatcherConfig{
		BatchSize:         embedding.DefaultBatchSize,
		Dimension:         cfg.EmbeddingDimension,
		RequestsPerSecond: cfg.EmbeddingRequestsPerS,
		Retry:             policy,
	}, logger)

	// =========
	// Fetchers
	// =========
	svc.cookies = crawler.NewBoltStorage(cfg.CookieDBPath)
	fetcher, err := crawler.NewHTTPFetcher(crawler.HTTPFetcherConfig{
		Timeout:  cfg.FetchTimeout,
		ProxyURL: cfg.ProxyURL,
		Storage:  svc.cookies,
	}, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}
	browser := crawler.NewBrowserFetcher(logger, cfg.ProxyURL, cfg.NavigationTimeout)

	// =========
	// Crawler
	// =========
	gate := relevance.NewContentFilter(relevance.DefaultContentQualityConfig())
	svc.crawler = crawler.NewCrawler(crawler.Deps{
		Fetcher:   fetcher,
		Browser:   browser,
		Extractor: crawler.NewExtractor(logger),
		Gate:      gate,
		Links:     relevance.NewKeywordRelevanceFilter(relevance.DefaultDomainKeywords),
		Chunker:   chunking.NewChunker(gate, logger),
		Embedder:  svc.batcher,
		Writer:    repository.NewWriter(store, repository.DefaultWriteBatchSize, logger),
		Store:     store,
		Logger:    logger,
	}, crawler.Options{
		MaxURLs:              cfg.MaxURLs,
		MaxLinksPerExpansion: crawler.DefaultMaxLinksPerExpansion,
		Retry:                policy,
	})

	return svc, nil
}

// ensureCollection retries while the store is still coming up. A dimension
// mismatch needs operator action and fails at once.
func ensureCollection(ctx context.Context, store repository.DocumentStore, dimension int, allowRecreate bool, policy retry.Policy) error {
	return retry.DoErr(ctx, policy, "ensure collection", func(ctx context.Context) error {
		err := store.EnsureCollection(ctx, dimension, allowRecreate)
		if errors.Is(err, repository.ErrDimensionMismatch) {
			return retry.Permanent(err)
		}
		return err
	})
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMongoDB:
		return mongodb.Connect(ctx, mongodb.Config{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.CollectionName,
			IndexName:  cfg.VectorIndexName,
		}, logger)
	case config.BackendQdrant:
		return qdrantdb.NewClient(qdrantdb.Config{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.CollectionName,
		}, logger)
	case config.BackendMemory:
		logger.Warn("using in-memory store, nothing will be persisted")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func newEmbeddingClient(cfg *config.Config) (embedding.Client, error) {
	if cfg.EmbeddingProvider == config.ProviderLangChain {
		return embedding.NewLangChain(cfg.EmbeddingBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	}
	return embedding.NewOpenAI(cfg.EmbeddingBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel,
		cfg.EmbeddingDimension, cfg.FetchTimeout), nil
}

func (s *services) assistant() (*search.Assistant, error) {
	model, err := search.NewChatModel(s.cfg.EmbeddingBaseURL, s.cfg.OpenAIAPIKey, s.cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	retriever := search.NewRetriever(s.store, s.logger)
	return search.NewAssistant(s.batcher, retriever, model, search.DefaultTopK, s.logger), nil
}

func (s *services) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			s.logger.Warn("close store", zap.Error(err))
		}
	}
	if s.cookies != nil {
		if err := s.cookies.Close(); err != nil {
			s.logger.Warn("close cookie db", zap.Error(err))
		}
	}
}
