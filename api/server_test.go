package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ianodad/Vector11/crawler"
	"github.com/Ianodad/Vector11/search"
)

type fakeAnswerer struct {
	got    []search.Message
	answer *search.Answer
	err    error
}

func (f *fakeAnswerer) Answer(_ context.Context, messages []search.Message) (*search.Answer, error) {
	f.got = messages
	return f.answer, f.err
}

func newTestServer(chat Answerer, refresh Refresher) http.Handler {
	return NewServer(0, "s3cret", chat, refresh, nil).Routes()
}

func send(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := send(newTestServer(&fakeAnswerer{}, nil), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestChat(t *testing.T) {
	chat := &fakeAnswerer{answer: &search.Answer{Text: "Saka.", Sources: []string{"https://a.example/squad"}}}
	h := newTestServer(chat, nil)

	rec := send(h, http.MethodPost, "/api/chat",
		`{"messages":[{"role":"user","content":"Who is Arsenal's top scorer?"}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Saka.", resp.Answer)
	assert.Equal(t, []string{"https://a.example/squad"}, resp.Sources)
	assert.Equal(t, []search.Message{{Role: "user", Content: "Who is Arsenal's top scorer?"}}, chat.got)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "bad json", body: `{"messages":`, want: http.StatusBadRequest},
		{name: "no question", body: `{"messages":[]}`, err: search.ErrNoQuestion, want: http.StatusBadRequest},
		{name: "model down", body: `{"messages":[{"role":"user","content":"q"}]}`, err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(newTestServer(&fakeAnswerer{err: tt.err}, nil), http.MethodPost, "/api/chat", tt.body, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	rec := send(newTestServer(&fakeAnswerer{}, nil), http.MethodGet, "/api/chat", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefresh_RequiresSecret(t *testing.T) {
	called := false
	refresh := RefreshFunc(func(context.Context) (crawler.Summary, error) {
		called = true
		return crawler.Summary{}, nil
	})
	h := newTestServer(&fakeAnswerer{}, refresh)

	for _, auth := range []string{"", "s3cret", "Bearer wrong", "Basic s3cret"} {
		rec := send(h, http.MethodPost, "/api/cron/refresh", "", map[string]string{"Authorization": auth})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, auth)
	}
	assert.False(t, called)
}

func TestRefresh_EmptySecretRejectsAll(t *testing.T) {
	h := NewServer(0, "", &fakeAnswerer{}, RefreshFunc(func(context.Context) (crawler.Summary, error) {
		return crawler.Summary{}, nil
	}), nil).Routes()

	rec := send(h, http.MethodPost, "/api/cron/refresh", "", map[string]string{"Authorization": "Bearer "})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_ReturnsSummary(t *testing.T) {
	refresh := RefreshFunc(func(context.Context) (crawler.Summary, error) {
		return crawler.Summary{RunID: "run-1", Done: 4, Skipped: 2, ChildrenInserted: 30, Elapsed: time.Second}, nil
	})
	h := newTestServer(&fakeAnswerer{}, refresh)

	rec := send(h, http.MethodPost, "/api/cron/refresh", "", map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got crawler.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 4, got.Done)
	assert.Equal(t, 2, got.Skipped)
	assert.Equal(t, 30, got.ChildrenInserted)
}

func TestRefresh_Failure(t *testing.T) {
	refresh := RefreshFunc(func(context.Context) (crawler.Summary, error) {
		return crawler.Summary{}, errors.New("dimension mismatch")
	})
	rec := send(newTestServer(&fakeAnswerer{}, refresh), http.MethodPost, "/api/cron/refresh", "",
		map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "dimension mismatch")
}

func TestRefresh_OutlivesClientDisconnect(t *testing.T) {
	var runErr error
	refresh := RefreshFunc(func(ctx context.Context) (crawler.Summary, error) {
		runErr = ctx.Err()
		return crawler.Summary{RunID: "run-2"}, nil
	})
	h := newTestServer(&fakeAnswerer{}, refresh)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/cron/refresh", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, runErr)
}

func TestRefresh_RejectsOverlappingRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	refresh := RefreshFunc(func(context.Context) (crawler.Summary, error) {
		close(started)
		<-release
		return crawler.Summary{}, nil
	})
	h := newTestServer(&fakeAnswerer{}, refresh)
	auth := map[string]string{"Authorization": "Bearer s3cret"}

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = send(h, http.MethodPost, "/api/cron/refresh", "", auth)
	}()

	<-started
	second := send(h, http.MethodPost, "/api/cron/refresh", "", auth)
	close(release)
	wg.Wait()

	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, http.StatusOK, first.Code)
}
