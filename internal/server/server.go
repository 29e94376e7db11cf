// Package server exposes the tokenizer over HTTP: /health, /info, /version
// and /tokenize_bulk.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fractalmind-ai/tokenizerd/internal/config"
	"github.com/fractalmind-ai/tokenizerd/internal/httpx"
	"github.com/fractalmind-ai/tokenizerd/internal/tokenizer"
)

// TokenizerProvider yields the resident tokenizer for an optional repo
// override. *tokenizer.Cache is the production implementation.
type TokenizerProvider interface {
	Get(ctx context.Context, override string) (tokenizer.Entry, error)
}

// Server represents the tokenizer HTTP service
type Server struct {
	config     *config.ServerConfig
	provider   TokenizerProvider
	resolver   tokenizer.Resolver
	logger     zerolog.Logger
	httpServer *http.Server
}

// NewServer creates a new tokenizer server
func NewServer(cfg *config.ServerConfig, provider TokenizerProvider, resolver tokenizer.Resolver, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("tokenizer provider is required")
	}
	return &Server{
		config:   cfg,
		provider: provider,
		resolver: resolver,
		logger:   logger,
	}, nil
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("tokenizer service listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/version", s.handleInfo)
	mux.HandleFunc("/tokenize_bulk", s.handleTokenizeBulk)
	return httpx.WithCORS(s.config.AllowedOrigins, mux)
}
