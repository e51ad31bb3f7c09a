// Package server exposes the bot over HTTP: the Telegram webhook, a health
// check and Prometheus metrics.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ivanoskov/formbot/internal/bot"
)

const (
	secretHeader  = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateSize = 1 << 20
)

// WebhookHandler processes one raw Telegram update.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// SessionCounter reports the number of in-progress conversations.
type SessionCounter interface {
	Len() int
}

// Server is the bot's HTTP server.
type Server struct {
	sessions SessionCounter
	logger   *slog.Logger

	webhook       WebhookHandler // nil in polling mode
	webhookPath   string
	webhookSecret string
}

// NewServer creates a server with /health and /metrics.
func NewServer(sessions SessionCounter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{sessions: sessions, logger: logger}
}

// SetWebhook mounts h on path. An empty secret disables the header check.
func (s *Server) SetWebhook(path, secret string, h WebhookHandler) {
	s.webhookPath = path
	s.webhookSecret = secret
	s.webhook = h
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	if s.webhook != nil {
		r.Post(s.webhookPath, s.handleWebhook)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr, "webhook", s.webhook != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if s.sessions != nil {
		resp["sessions"] = s.sessions.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWebhook answers 200 once the update was decoded, even if handling it
// failed, so Telegram does not redeliver it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(s.webhookSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid secret token")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	// a confirmation must finish even if Telegram drops the connection
	ctx := context.WithoutCancel(r.Context())
	if err := s.webhook.HandleWebhook(ctx, body); err != nil {
		if errors.Is(err, bot.ErrBadUpdate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to handle webhook update",
			"request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
