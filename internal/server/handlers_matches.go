package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/candorhq/candor/internal/drafting"
	"github.com/candorhq/candor/internal/types"
	"go.uber.org/zap"
)

// handleListMatches lists the company's talent-bank suggestions, best first.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}

	matches, err := s.store.ListMatches(r.Context(), companyID, time.Now().UTC())
	if err != nil {
		s.domainError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"matches": matches,
		"total":   len(matches),
	})
}

// handleMatchRole runs the matcher for an open role and returns the
// refreshed suggestions.
func (s *Server) handleMatchRole(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}
	roleID, ok := s.pathID(w, r)
	if !ok {
		return
	}

	matches, err := s.matcher.MatchRole(r.Context(), companyID, roleID)
	if err != nil {
		s.domainError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"matches": matches,
		"total":   len(matches),
	})
}

// handleActionMatch marks a suggestion as acted on and drafts the
// candidate's re-engagement email through the gate.
func (s *Server) handleActionMatch(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}
	matchID, ok := s.pathID(w, r)
	if !ok {
		return
	}

	match, err := s.matcher.Action(r.Context(), companyID, matchID)
	if err != nil {
		s.domainError(w, err)
		return
	}

	resp := map[string]any{"match": match}

	candidate, err := s.store.GetCandidate(r.Context(), companyID, match.CandidateID)
	if err != nil {
		s.domainError(w, err)
		return
	}
	if candidate == nil {
		s.errorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}
	// the outreach is about the newly matched role, not the one the
	// candidate originally applied to
	candidate.RoleID = &match.RoleID

	comm, err := s.engine.Draft(r.Context(), candidate, types.TypeReengagement)
	switch {
	case errors.Is(err, drafting.ErrActiveCommunication):
		// an outreach is already in flight; the action still counts
	case err != nil:
		// the match was actioned, so report the drafting problem
		// instead of failing the request
		s.logger.Warn("re-engagement draft failed",
			zap.String("candidate_id", candidate.ID.String()),
			zap.Error(err))
		resp["draft_error"] = err.Error()
	default:
		queued, err := s.gate.Submit(r.Context(), comm)
		if err != nil {
			s.domainError(w, err)
			return
		}
		resp["communication"] = comm
		resp["queued"] = queued
	}

	s.jsonResponse(w, http.StatusOK, resp)
}
