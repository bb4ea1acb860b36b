// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/pdfchat/conversation"
	"github.com/poiesic/pdfchat/core"
)

const (
	// DefaultMaxUploadBytes bounds the body of every /api request.
	DefaultMaxUploadBytes = 64 << 20

	shutdownTimeout = 10 * time.Second
)

// ErrServiceRequired is returned by New when no service is supplied.
var ErrServiceRequired = errors.New("service is required")

// Service is the question-answering surface the HTTP API exposes.
// *pdfchat.Assistant satisfies it.
type Service interface {
	Upload(ctx context.Context, apiKey, name string, r io.Reader) (*core.Document, error)
	Ask(ctx context.Context, apiKey, sessionID, question string) (*conversation.Response, error)
	History(ctx context.Context, sessionID string) ([]core.Turn, error)
	Sessions(ctx context.Context) ([]*core.Session, error)
	Document() *core.Document
}

// Server routes HTTP requests to a Service.
type Server struct {
	service        Service
	router         chi.Router
	maxUploadBytes int64
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger != nil {
			s.logger = logger.With("component", "server")
		}
		return nil
	}
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) error {
		if n <= 0 {
			return errors.New("max upload bytes must be positive")
		}
		s.maxUploadBytes = n
		return nil
	}
}

// New builds the router for service.
func New(service Service, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}

	s := &Server{
		service:        service,
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.limitBody)
		api.Use(s.requireAPIKey)

		api.Post("/documents", s.handleUpload)
		api.Get("/sessions", s.handleListSessions)
		api.Post("/sessions/{sessionID}/questions", s.handleAsk)
		api.Get("/sessions/{sessionID}/history", s.handleHistory)
	})

	s.router = r
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
