package api

import (
	"encoding/json"
	"net/http"

	"github.com/todmy/claim-verifier/internal/verification"
)

// Claim verification. Upstream outages never surface here: the engine
// degrades to an UNKNOWN result, so errors mean invalid input.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClaimText        string `json:"claim_text"`
		Source           string `json:"source"`
		ExtensionVersion string `json:"extension_version"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.verifier.VerifyClaim(r.Context(), verification.Request{
		ClaimText:        req.ClaimText,
		Source:           req.Source,
		ExtensionVersion: req.ExtensionVersion,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}
