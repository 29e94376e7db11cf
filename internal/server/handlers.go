package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fractalmind-ai/tokenizerd"
	"github.com/fractalmind-ai/tokenizerd/internal/fingerprint"
	"github.com/fractalmind-ai/tokenizerd/internal/httpx"
	"github.com/fractalmind-ai/tokenizerd/pkg/protocol"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, protocol.HealthResponse{OK: true})
}

// handleInfo serves /info and its /version alias: the resolved source, the
// backend fingerprint and the diagnostic local artifact fingerprint.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entry, err := s.provider.Get(r.Context(), r.URL.Query().Get("repo"))
	if err != nil {
		s.logger.Error().Err(err).Msg("info: tokenizer load failed")
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	info := protocol.InfoResponse{
		Service:             tokenizerd.Version,
		Source:              entry.Source.Value,
		LocalOnly:           entry.LocalOnly,
		BackendTokenizerMD5: entry.Fingerprint,
		PaddingSide:         entry.Encoder.PaddingSide(),
		TruncationSide:      entry.Encoder.TruncationSide(),
	}
	// File fingerprints are diagnostic: unreadable means absent, never an error.
	if s.resolver.HasLocalDir() {
		if digest, ok := fingerprint.File(s.resolver.LocalArtifactPath()); ok {
			info.LocalTokenizerJSONMD5 = &digest
		}
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

func (s *Server) handleTokenizeBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req protocol.TokenizeBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	// Validate before any tokenizer is touched.
	if len(req.Prompts) != len(req.Responses) {
		httpx.WriteError(w, http.StatusBadRequest, "prompts and responses must have the same length")
		return
	}

	entry, err := s.provider.Get(r.Context(), req.Repo)
	if err != nil {
		s.logger.Error().Err(err).Msg("tokenize_bulk: tokenizer load failed")
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ids, mask, err := entry.Encoder.EncodePairs(req.Prompts, req.Responses, req.Truncate(), req.EffectiveMaxLength())
	if err != nil {
		s.logger.Error().Err(err).Msg("tokenize_bulk: encoding failed")
		httpx.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("tokenization failed: %v", err))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, protocol.TokenizeBulkResponse{
		InputIDs:      ids,
		AttentionMask: mask,
	})
}
