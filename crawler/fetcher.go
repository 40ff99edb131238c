package crawler

import (
	"context"
	"fmt"
	"net/http"
)

type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// PageFetcher returns the raw HTML (or XML) behind a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// StatusError is a non-2xx page response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Code)
}

func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}
