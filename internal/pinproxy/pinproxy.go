// Package pinproxy forwards pin requests to a configured content-pinning
// provider. It knows nothing about any provider's request shape beyond
// "POST the bytes with a bearer token"; only the location of the CID in the
// reply is configurable per provider.
package pinproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fractalmind-ai/tokenizerd/internal/config"
	"github.com/fractalmind-ai/tokenizerd/internal/httpx"
	"github.com/fractalmind-ai/tokenizerd/pkg/protocol"
)

// Version of the pinning proxy, reported by GET /version.
const Version = "1.0.0"

// maxUploadBytes caps pin payloads; pinned artifacts are manifests and
// tokenizer files, not model weights.
const maxUploadBytes = 32 << 20

// Server represents the pinning proxy service
type Server struct {
	config     *config.PinConfig
	client     *http.Client
	logger     zerolog.Logger
	httpServer *http.Server
}

// NewServer creates a new pinning proxy server
func NewServer(cfg *config.PinConfig, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pin config is required")
	}
	return &Server{
		config: cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
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
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("pinning proxy listening")
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
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/ipfs/pin_json", s.handlePinJSON)
	mux.HandleFunc("/ipfs/pin_file", s.handlePinFile)
	return httpx.WithCORS(s.config.AllowedOrigins, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, protocol.HealthResponse{OK: true})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, protocol.PinVersionResponse{
		Service:  Version,
		Provider: s.config.Provider,
	})
}

func (s *Server) handlePinJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provider, err := s.provider()
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err))
		return
	}
	if !json.Valid(body) {
		httpx.WriteError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	s.forward(r.Context(), w, provider, body, "application/json")
}

func (s *Server) handlePinFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provider, err := s.provider()
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("missing file upload: %v", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	s.forward(r.Context(), w, provider, content, contentType)
}

// provider resolves the configured upstream. Misconfiguration is a client
// visible fault so operators see it on the first pin attempt.
func (s *Server) provider() (*config.PinProvider, error) {
	if s.config.Provider == "" {
		return nil, fmt.Errorf("no pin provider configured")
	}
	provider, ok := s.config.Providers[s.config.Provider]
	if !ok || provider == nil {
		return nil, fmt.Errorf("unsupported provider: %s", s.config.Provider)
	}
	if provider.Endpoint == "" {
		return nil, fmt.Errorf("provider %s has no endpoint configured", s.config.Provider)
	}
	return provider, nil
}

// forward uploads the payload verbatim and maps the upstream reply to the
// {cid, uri, gateway_url} envelope. Upstream failures relay their status.
func (s *Server) forward(ctx context.Context, w http.ResponseWriter, provider *config.PinProvider, payload []byte, contentType string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.Endpoint, bytes.NewReader(payload))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build upstream request: %v", err))
		return
	}
	req.Header.Set("Content-Type", contentType)
	if provider.Token != "" {
		req.Header.Set("Authorization", "Bearer "+provider.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, fmt.Sprintf("upstream request failed: %v", err))
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, fmt.Sprintf("failed to read upstream response: %v", err))
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpx.WriteError(w, resp.StatusCode, strings.TrimSpace(string(respBody)))
		return
	}

	cid, err := extractCID(respBody, provider.CIDField)
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.logger.Info().Str("provider", s.config.Provider).Str("cid", cid).Msg("pinned content")
	httpx.WriteJSON(w, http.StatusOK, protocol.PinResponse{
		CID:        cid,
		URI:        "ipfs://" + cid,
		GatewayURL: gatewayURL(provider.Gateway, cid),
	})
}

func extractCID(body []byte, field string) (string, error) {
	if field == "" {
		field = "cid"
	}
	var reply map[string]any
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("upstream reply is not JSON: %v", err)
	}
	cid, _ := reply[field].(string)
	if cid == "" {
		return "", fmt.Errorf("upstream reply has no %q field", field)
	}
	return cid, nil
}

func gatewayURL(gateway, cid string) string {
	if gateway == "" {
		return ""
	}
	return strings.TrimSuffix(gateway, "/") + "/" + cid
}
