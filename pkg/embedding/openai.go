package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

type embeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAI talks to any OpenAI-compatible /embeddings endpoint and asks for
// vectors of a fixed dimension.
type OpenAI struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int
	HTTPClient *http.Client
}

func NewOpenAI(baseURL, apiKey, model string, dimension int, timeout time.Duration) *OpenAI {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		Model:     model,
		Dimension: dimension,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *OpenAI) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{}, nil
	}

	jsonData, err := json.Marshal(embeddingRequest{
		Model:          c.Model,
		Input:          texts,
		Dimensions:     c.Dimension,
		EncodingFormat: "float",
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return Result{}, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}

	tokens := parsed.Usage.TotalTokens
	if tokens == 0 {
		tokens = parsed.Usage.PromptTokens
	}
	return Result{Vectors: vectors, Tokens: tokens}, nil
}
