// Package server provides the HTTP API for HAL.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/config"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/conversation"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/handoff"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/indexer"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/keyword"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/storage"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/vector"
)

// Asker answers student questions.
type Asker interface {
	Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error)
}

// Deps are the components the API exposes. Watched is optional.
type Deps struct {
	Advisor  Asker
	Sessions *conversation.Manager
	Indexer  *indexer.Indexer
	Storage  storage.Storage
	Handoffs *handoff.Manager
	Keywords keyword.Index
	Vectors  vector.Index
	// Watched reports the directories under live re-ingest.
	Watched func() []string
}

// Server is the HTTP server for the HAL API.
type Server struct {
	deps   Deps
	cfg    *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, cfg: cfg, logger: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	timeout := s.cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Post("/feedback", s.handleFeedback)

		r.Get("/handoffs", s.handleListHandoffs)
		r.Post("/handoffs/{id}/resolve", s.handleResolveHandoff)

		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleClearSession)

		r.Post("/knowledge", s.handleIndexDocument)
		r.Get("/knowledge", s.handleListDocuments)
		r.Get("/knowledge/search", s.handleSearchKnowledge)
		r.Get("/knowledge/{id}", s.handleGetDocument)
		r.Delete("/knowledge/{id}", s.handleDeleteDocument)

		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
