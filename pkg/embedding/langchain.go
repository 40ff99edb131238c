package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChain embeds through a langchaingo embedder. Token usage is counted
// locally since the embedder does not surface the provider's usage block.
type LangChain struct {
	embedder    embeddings.Embedder
	model       string
	countTokens func(model, text string) int
}

func NewLangChain(baseURL, apiKey, model string) (*LangChain, error) {
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return NewLangChainFromEmbedder(embedder, model), nil
}

func NewLangChainFromEmbedder(embedder embeddings.Embedder, model string) *LangChain {
	return &LangChain{embedder: embedder, model: model, countTokens: llms.CountTokens}
}

func (c *LangChain) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{}, nil
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return Result{}, err
	}
	if len(vectors) != len(texts) {
		return Result{}, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(texts))
	}

	tokens := 0
	for _, t := range texts {
		tokens += c.countTokens(c.model, t)
	}
	return Result{Vectors: vectors, Tokens: tokens}, nil
}
