package server

import (
	"encoding/json"
	"net/http"

	"github.com/candorhq/candor/internal/types"
)

type calibrateRequest struct {
	ToneClass types.ToneClass `json:"tone_class"`
	Samples   []string        `json:"samples"`
}

// handleCalibrateVoice extracts a fresh voice profile from sample emails,
// replacing the company's current one.
func (s *Server) handleCalibrateVoice(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !req.ToneClass.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid tone class")
		return
	}

	profile, err := s.voice.Extract(r.Context(), companyID, req.ToneClass, req.Samples)
	if err != nil {
		s.domainError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, profile)
}
