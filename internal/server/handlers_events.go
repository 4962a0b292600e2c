package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/candorhq/candor/internal/drafting"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline sync event names.
const (
	EventCandidateUpdated  = "candidate.updated"
	EventCandidateRejected = "candidate.rejected"
	EventRoleOpened        = "role.opened"
)

type candidatePayload struct {
	ATSID           string     `json:"ats_id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Status          string     `json:"status"`
	Skills          []string   `json:"skills"`
	RoleID          *uuid.UUID `json:"role_id,omitempty"`
	DaysInStage     int        `json:"days_in_stage"`
	AddToTalentBank bool       `json:"add_to_talent_bank"`
}

type eventRequest struct {
	Event     string            `json:"event"`
	Candidate *candidatePayload `json:"candidate,omitempty"`
	RoleID    *uuid.UUID        `json:"role_id,omitempty"`
}

// handleEvent ingests pipeline sync events from the ATS integration.
// Candidate events upsert by external ATS ID so replays and out-of-order
// deliveries stay idempotent. A rejection event additionally drafts the
// rejection email and routes it through the gate.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	switch req.Event {
	case EventCandidateUpdated:
		s.handleCandidateEvent(w, r, companyID, req.Candidate, false)
	case EventCandidateRejected:
		s.handleCandidateEvent(w, r, companyID, req.Candidate, true)
	case EventRoleOpened:
		if req.RoleID == nil {
			s.errorResponse(w, http.StatusBadRequest, "role_id is required for "+EventRoleOpened)
			return
		}
		s.handleRoleOpenedEvent(w, r, companyID, *req.RoleID)
	default:
		s.errorResponse(w, http.StatusBadRequest, "Unknown event type")
	}
}

func (s *Server) handleCandidateEvent(w http.ResponseWriter, r *http.Request, companyID uuid.UUID, payload *candidatePayload, rejected bool) {
	if payload == nil || payload.ATSID == "" {
		s.errorResponse(w, http.StatusBadRequest, "candidate with ats_id is required")
		return
	}

	status := types.CandidateStatus(payload.Status)
	if rejected {
		status = types.StatusRejected
	}
	if !status.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid candidate status")
		return
	}

	candidate, err := s.store.UpsertCandidateByATSID(r.Context(), &types.Candidate{
		CompanyID:         companyID,
		ATSID:             &payload.ATSID,
		Name:              payload.Name,
		Email:             payload.Email,
		Status:            status,
		Skills:            payload.Skills,
		RoleID:            payload.RoleID,
		DaysInStage:       payload.DaysInStage,
		AddedToTalentBank: payload.AddToTalentBank,
	})
	if err != nil {
		s.domainError(w, err)
		return
	}

	resp := map[string]any{"candidate": candidate}

	if rejected {
		comm, err := s.engine.Draft(r.Context(), candidate, types.TypeRejection)
		switch {
		case errors.Is(err, drafting.ErrActiveCommunication):
			// a rejection is already in flight; the replay is a no-op
		case err != nil:
			// the candidate sync itself succeeded, so the webhook must
			// not be retried for a drafting problem
			s.logger.Warn("rejection draft failed",
				zap.String("candidate_id", candidate.ID.String()),
				zap.Error(err))
			resp["draft_error"] = err.Error()
		default:
			queued, err := s.gate.Submit(r.Context(), comm)
			if err != nil {
				s.domainError(w, err)
				return
			}
			if queued {
				comm, err = s.store.GetCommunication(r.Context(), companyID, comm.ID)
				if err != nil {
					s.domainError(w, err)
					return
				}
			}
			resp["communication"] = comm
			resp["queued"] = queued
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleRoleOpenedEvent(w http.ResponseWriter, r *http.Request, companyID, roleID uuid.UUID) {
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

// handleNudgeScan drafts check-ins for every candidate stuck in a stage
// past the threshold, then routes each through the gate.
func (s *Server) handleNudgeScan(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}

	drafted, err := s.engine.NudgeSweep(r.Context(), companyID, s.nudgeAfterDays)
	if err != nil {
		s.domainError(w, err)
		return
	}

	var queued int
	for _, comm := range drafted {
		wasQueued, err := s.gate.Submit(r.Context(), comm)
		if err != nil {
			s.domainError(w, err)
			return
		}
		if wasQueued {
			queued++
		}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"drafted": len(drafted),
		"queued":  queued,
	})
}
