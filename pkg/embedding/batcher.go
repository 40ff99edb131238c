package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Ianodad/Vector11/pkg/retry"
)

const DefaultBatchSize = 100

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type BatcherConfig struct {
	BatchSize int
	// Dimension every returned vector must have. Zero disables the check.
	Dimension         int
	RequestsPerSecond float64
	Retry             retry.Policy
}

// Batcher embeds child texts in provider-sized batches, each call wrapped in
// retry, and keeps a running total of the tokens used.
type Batcher struct {
	client    Client
	batchSize int
	dimension int
	policy    retry.Policy
	limiter   *rate.Limiter
	logger    *zap.Logger
	tokens    atomic.Int64
}

func NewBatcher(client Client, cfg BatcherConfig, logger *zap.Logger) *Batcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultPolicy(logger)
	}
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = logger
	}

	b := &Batcher{
		client:    client,
		batchSize: cfg.BatchSize,
		dimension: cfg.Dimension,
		policy:    cfg.Retry,
		logger:    logger,
	}
	if cfg.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return b
}

// Prefix tags a text with its source label before embedding.
func Prefix(label, text string) string {
	return "[Source: " + label + "]\n" + text
}

// EmbedDocuments returns one vector per text, in order. Texts are prefixed with
// the source label. If any batch fails after retries nothing is returned.
func (b *Batcher) EmbedDocuments(ctx context.Context, label string, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))

		batch := make([]string, 0, end-start)
		for _, t := range texts[start:end] {
			batch = append(batch, Prefix(label, t))
		}

		vecs, err := b.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, vecs...)
	}

	return vectors, nil
}

// EmbedQuery embeds a single search query without a source prefix.
func (b *Batcher) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := b.embedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// TokensUsed is the cumulative token count since the Batcher was created.
func (b *Batcher) TokensUsed() int64 {
	return b.tokens.Load()
}

func (b *Batcher) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	res, err := retry.Do(ctx, b.policy, "embed", func(ctx context.Context) (Result, error) {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return Result{}, retry.Permanent(err)
			}
		}
		res, err := b.client.Embed(ctx, batch)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return Result{}, retry.Permanent(err)
			}
			return Result{}, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	if len(res.Vectors) != len(batch) {
		return nil, fmt.Errorf("got %d vectors for %d texts", len(res.Vectors), len(batch))
	}
	if b.dimension > 0 {
		for i, v := range res.Vectors {
			if len(v) != b.dimension {
				return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), b.dimension)
			}
		}
	}

	total := b.tokens.Add(int64(res.Tokens))
	b.logger.Debug("embedded batch",
		zap.Int("batch", len(batch)),
		zap.Int("tokens", res.Tokens),
		zap.Int64("tokens_total", total),
	)
	return res.Vectors, nil
}
