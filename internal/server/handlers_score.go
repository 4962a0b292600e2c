package server

import (
	"net/http"
	"time"
)

// handleGetScore returns the company's headline Candor Score and the latest
// snapshot behind it.
func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}

	company, err := s.store.GetCompany(r.Context(), companyID)
	if err != nil {
		s.domainError(w, err)
		return
	}
	if company == nil {
		s.errorResponse(w, http.StatusNotFound, "Company not found")
		return
	}

	snapshot, err := s.store.LatestScoreSnapshot(r.Context(), companyID)
	if err != nil {
		s.domainError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"candor_score": company.CandorScore,
		"snapshot":     snapshot,
	})
}

// handleRecomputeScore derives a fresh snapshot on demand.
func (s *Server) handleRecomputeScore(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}

	snapshot, err := s.aggregator.Recompute(r.Context(), companyID, time.Now().UTC())
	if err != nil {
		s.domainError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, snapshot)
}
