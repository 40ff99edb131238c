package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/search"
)

const maxBodyBytes = 1 << 20

type ChatRequest struct {
	Messages []search.Message `json:"messages"`
}

type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	answer, err := s.chat.Answer(r.Context(), req.Messages)
	if errors.Is(err, search.ErrNoQuestion) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to answer"})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer.Text, Sources: answer.Sources})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.refreshing.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "refresh already running"})
		return
	}
	defer s.refreshing.Unlock()

	// A cron caller that hangs up must not abort a half-written run.
	summary, err := s.refresher.Refresh(context.WithoutCancel(r.Context()))
	if err != nil {
		s.logger.Error("refresh failed", zap.Error(err), zap.String("run_id", summary.RunID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// requireCronSecret rejects requests without "Authorization: Bearer <secret>".
// An unset secret rejects everything.
func (s *Server) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || s.cronSecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
