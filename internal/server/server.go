// Package server provides the HTTP REST API for the communication pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/candorhq/candor/internal/drafting"
	"github.com/candorhq/candor/internal/gate"
	"github.com/candorhq/candor/internal/scoring"
	"github.com/candorhq/candor/internal/server/middleware"
	"github.com/candorhq/candor/internal/talentbank"
	"github.com/candorhq/candor/internal/types"
	"github.com/candorhq/candor/internal/voice"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence surface the HTTP handlers read directly. Writes
// that carry domain rules go through the engine, gate, aggregator, matcher,
// and voice extractor instead.
type Store interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*types.Company, error)
	GetCandidate(ctx context.Context, companyID, id uuid.UUID) (*types.Candidate, error)
	GetCommunication(ctx context.Context, companyID, id uuid.UUID) (*types.Communication, error)
	ListCommunicationsByStatus(ctx context.Context, companyID uuid.UUID, status types.CommunicationStatus, limit int) ([]types.Communication, error)
	UpdateCommunicationDraft(ctx context.Context, companyID, id uuid.UUID, subject, body string, reviewedBy uuid.UUID) error
	LatestScoreSnapshot(ctx context.Context, companyID uuid.UUID) (*types.ScoreSnapshot, error)
	ListMatches(ctx context.Context, companyID uuid.UUID, asOf time.Time) ([]types.TalentBankMatch, error)
	UpsertCandidateByATSID(ctx context.Context, c *types.Candidate) (*types.Candidate, error)
}

// Deps holds the wired components the server exposes over HTTP.
type Deps struct {
	Store          Store
	Engine         *drafting.Engine
	Gate           *gate.Gate
	Aggregator     *scoring.Aggregator
	Matcher        *talentbank.Matcher
	Voice          *voice.Extractor
	JWT            *JWTService
	Logger         *zap.Logger
	NudgeAfterDays int
}

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	store          Store
	engine         *drafting.Engine
	gate           *gate.Gate
	aggregator     *scoring.Aggregator
	matcher        *talentbank.Matcher
	voice          *voice.Extractor
	logger         *zap.Logger
	nudgeAfterDays int
}

// New creates a new server instance listening on addr.
func New(addr string, deps Deps) *Server {
	s := &Server{
		store:          deps.Store,
		engine:         deps.Engine,
		gate:           deps.Gate,
		aggregator:     deps.Aggregator,
		matcher:        deps.Matcher,
		voice:          deps.Voice,
		logger:         deps.Logger,
		nudgeAfterDays: deps.NudgeAfterDays,
	}

	api := http.NewServeMux()

	// Review queue
	api.HandleFunc("GET /communications", s.handleListCommunications)
	api.HandleFunc("GET /communications/{id}", s.handleGetCommunication)
	api.HandleFunc("PUT /communications/{id}", s.handleEditCommunication)
	api.HandleFunc("POST /communications/{id}/approve", s.handleApprove)
	api.HandleFunc("POST /communications/{id}/cancel", s.handleCancel)
	api.HandleFunc("POST /communications/{id}/send", s.handleForceSend)
	api.HandleFunc("POST /communications/{id}/discard", s.handleDiscard)
	api.HandleFunc("POST /communications/{id}/retry", s.handleRetry)

	// Candor Score
	api.HandleFunc("GET /score", s.handleGetScore)
	api.HandleFunc("POST /score/recompute", s.handleRecomputeScore)

	// Talent bank
	api.HandleFunc("GET /matches", s.handleListMatches)
	api.HandleFunc("POST /roles/{id}/match", s.handleMatchRole)
	api.HandleFunc("POST /matches/{id}/action", s.handleActionMatch)

	// Voice calibration
	api.HandleFunc("POST /voice/calibrate", s.handleCalibrateVoice)

	// Pipeline sync
	api.HandleFunc("POST /events", s.handleEvent)
	api.HandleFunc("POST /nudges/scan", s.handleNudgeScan)

	authed := middleware.AuthMiddleware(deps.JWT.AsTokenValidator())(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/", authed)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // drafting calls the model inline
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start listens for requests until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.gate.Stop()
	s.logger.Info("server stopped")
	return nil
}

// Handler returns the full middleware-wrapped handler (for testing purposes).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// domainError maps a component error onto the right HTTP status.
func (s *Server) domainError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("internal error", zap.Error(err))
		s.errorResponse(w, status, "internal error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// identity pulls the authenticated company and user from the request.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (companyID, userID uuid.UUID, ok bool) {
	companyID, err := middleware.GetCompanyID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	return companyID, userID, true
}

// pathID parses the {id} path segment.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}
