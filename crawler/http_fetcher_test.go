package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, DefaultUserAgent, r.UserAgent())
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body><p>Arsenal 2-1 Chelsea</p></body></html>"))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(HTTPFetcherConfig{}, nil)
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, 200, page.StatusCode)
	assert.Contains(t, string(page.Body), "Arsenal 2-1 Chelsea")

	// the same fetcher is reused for several URLs
	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 404, se.Code)
	assert.False(t, se.Retryable())

	_, err = f.Fetch(context.Background(), srv.URL+"/busy")
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	f, err := NewHTTPFetcher(HTTPFetcherConfig{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, "http://127.0.0.1:1/never")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher_RejectsBadProxy(t *testing.T) {
	_, err := NewHTTPFetcher(HTTPFetcherConfig{ProxyURL: "://bad"}, nil)
	assert.Error(t, err)
}
