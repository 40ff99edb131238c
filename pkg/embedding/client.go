package embedding

import (
	"context"
	"fmt"
	"net/http"
)

// Result holds one vector per input, in input order, and the tokens the
// provider billed for the call.
type Result struct {
	Vectors [][]float32
	Tokens  int
}

type Client interface {
	// Input: ["this is a text"]
	// Output: [[0.12, -0.33, 0.57, ...]] plus token usage
	Embed(ctx context.Context, texts []string) (Result, error)
}

// StatusError is a non-2xx answer from an embedding provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embedding service returned status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt: server
// errors, timeouts and rate limits.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// Dot returns the dot product of two equal-length vectors, 0 otherwise.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
