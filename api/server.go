package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/crawler"
	"github.com/Ianodad/Vector11/search"
)

// Answerer answers a chat conversation.
type Answerer interface {
	Answer(ctx context.Context, messages []search.Message) (*search.Answer, error)
}

// Refresher runs one incremental ingestion over the refresh feeds.
type Refresher interface {
	Refresh(ctx context.Context) (crawler.Summary, error)
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context) (crawler.Summary, error)

func (f RefreshFunc) Refresh(ctx context.Context) (crawler.Summary, error) {
	return f(ctx)
}

type Server struct {
	port       int
	cronSecret string
	chat       Answerer
	refresher  Refresher
	logger     *zap.Logger

	// refreshing is held while a refresh runs; a second trigger is rejected.
	refreshing sync.Mutex
}

func NewServer(port int, cronSecret string, chat Answerer, refresher Refresher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		port:       port,
		cronSecret: cronSecret,
		chat:       chat,
		refresher:  refresher,
		logger:     logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.With(s.requireCronSecret).Post("/cron/refresh", s.handleRefresh)
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", zap.Int("port", s.port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
