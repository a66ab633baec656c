package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mattjoyce/hookguard/internal/auth"
	"github.com/mattjoyce/hookguard/internal/events"
	"github.com/mattjoyce/hookguard/internal/log"
	"github.com/mattjoyce/hookguard/internal/middleware"
	"github.com/mattjoyce/hookguard/internal/problem"
)

// Server represents the webhook HTTP server.
type Server struct {
	config Config
	hub    *events.Hub
	logger *slog.Logger
	server *http.Server

	newID func() string
}

// New creates a new webhook server instance.
func New(config Config, hub *events.Hub, logger *slog.Logger) *Server {
	for i := range config.Endpoints {
		if config.Endpoints[i].MaxBodySize <= 0 {
			config.Endpoints[i].MaxBodySize = middleware.DefaultMaxBodySize
		}
	}
	if hub == nil {
		hub = events.NewHub(0)
	}
	if logger == nil {
		logger = log.WithComponent("server")
	}

	return &Server{
		config: config,
		hub:    hub,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "endpoints", len(s.config.Endpoints))

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken(s.config.EventsToken))
		r.Get("/events", s.handleEvents)
		r.Get("/events/stream", s.handleEventStream)
	})

	for _, ep := range s.config.Endpoints {
		r.With(middleware.Verify(middleware.Options{
			Provider:    ep.Provider,
			MaxBodySize: ep.MaxBodySize,
			URL:         signedURL(ep),
			OnError:     s.rejectFunc(ep),
			Logger:      s.logger,
		})).Post(ep.Path, s.acceptFunc(ep))
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Log request (no body content for security)
		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// signedURL returns the URL resolver for ep. A configured public URL wins
// over the one rebuilt from the request; the query string is kept.
func signedURL(ep Endpoint) func(*http.Request) string {
	if ep.PublicURL == "" {
		return middleware.RequestURL
	}
	return func(r *http.Request) string {
		if r.URL.RawQuery == "" {
			return ep.PublicURL
		}
		return ep.PublicURL + "?" + r.URL.RawQuery
	}
}

func (s *Server) rejectFunc(ep Endpoint) middleware.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, doc problem.Document) {
		s.hub.Publish(events.Event{
			Kind:      events.KindRejected,
			Path:      ep.Path,
			Provider:  ep.Provider.Name(),
			Reason:    doc.Slug(),
			RequestID: chimw.GetReqID(r.Context()),
		})
		doc.Instance = r.URL.Path
		problem.Write(w, doc)
	}
}

func (s *Server) acceptFunc(ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, _ := middleware.ProviderName(r.Context())
		deliveryID := s.newID()

		s.hub.Publish(events.Event{
			Kind:       events.KindAccepted,
			Path:       ep.Path,
			Provider:   name,
			DeliveryID: deliveryID,
			RequestID:  chimw.GetReqID(r.Context()),
		})

		s.logger.Info("webhook accepted",
			"path", ep.Path,
			"provider", name,
			"delivery_id", deliveryID,
		)

		s.respondJSON(w, http.StatusAccepted, AcceptedResponse{DeliveryID: deliveryID, Provider: name})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"endpoints": len(s.config.Endpoints),
	})
}

// handleEvents returns buffered outcomes newer than ?since=N.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			s.respondError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = v
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"events": s.hub.SnapshotSince(since)})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
