package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// parseQueryInt parses an integer query parameter with default and max values
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}

// handleListCommunications lists the company's communications in one
// lifecycle status, defaulting to the draft review queue.
func (s *Server) handleListCommunications(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}

	status := types.CommunicationStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = types.CommDraft
	}
	if !status.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid status")
		return
	}
	limit := parseQueryInt(r, "limit", 50, 200)

	comms, err := s.store.ListCommunicationsByStatus(r.Context(), companyID, status, limit)
	if err != nil {
		s.domainError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"communications": comms,
		"status":         status,
		"limit":          limit,
	})
}

// handleGetCommunication retrieves one communication by ID
func (s *Server) handleGetCommunication(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.identity(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	comm, err := s.store.GetCommunication(r.Context(), companyID, id)
	if err != nil {
		s.domainError(w, err)
		return
	}
	if comm == nil {
		s.errorResponse(w, http.StatusNotFound, "Communication not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, comm)
}

type editRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// handleEditCommunication applies a reviewer's edits to a draft. The edit
// feeds the voice profile so repeated corrections teach the drafting engine.
func (s *Server) handleEditCommunication(w http.ResponseWriter, r *http.Request) {
	companyID, userID, ok := s.identity(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		s.errorResponse(w, http.StatusBadRequest, "Subject and body are required")
		return
	}

	before, err := s.store.GetCommunication(r.Context(), companyID, id)
	if err != nil {
		s.domainError(w, err)
		return
	}
	if before == nil {
		s.errorResponse(w, http.StatusNotFound, "Communication not found")
		return
	}

	if err := s.store.UpdateCommunicationDraft(r.Context(), companyID, id, req.Subject, req.Body, userID); err != nil {
		s.domainError(w, err)
		return
	}

	if err := s.voice.RecordEdit(r.Context(), companyID, before.Body, req.Body); err != nil {
		// learning from the edit is best effort; the edit itself stuck
		s.logger.Warn("failed to record edit feedback", zap.Error(err))
	}

	updated, err := s.store.GetCommunication(r.Context(), companyID, id)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

// handleApprove sends a draft immediately.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.gateAction(w, r, s.gate.Approve)
}

// handleCancel pulls a queued communication back to draft.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.gateAction(w, r, s.gate.Cancel)
}

// handleForceSend delivers a queued communication without waiting.
func (s *Server) handleForceSend(w http.ResponseWriter, r *http.Request) {
	s.gateAction(w, r, s.gate.ForceSend)
}

// handleDiscard terminally rejects a draft or failed communication.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	s.gateAction(w, r, s.gate.Discard)
}

// handleRetry re-attempts a failed delivery.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.gateAction(w, r, s.gate.Retry)
}

type gateActionFunc func(ctx context.Context, companyID, id, reviewedBy uuid.UUID) error

func (s *Server) gateAction(w http.ResponseWriter, r *http.Request, action gateActionFunc) {
	companyID, userID, ok := s.identity(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := action(r.Context(), companyID, id, userID); err != nil {
		s.domainError(w, err)
		return
	}

	comm, err := s.store.GetCommunication(r.Context(), companyID, id)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, comm)
}
