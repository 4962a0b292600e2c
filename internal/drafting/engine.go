package drafting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/candorhq/candor/internal/confidence"
	"github.com/candorhq/candor/internal/llm"
	"github.com/candorhq/candor/internal/prompts"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrActiveCommunication means the candidate already has a draft or queued
// communication of the requested type; a second one is never created.
var ErrActiveCommunication = errors.New("an active communication of this type already exists for the candidate")

const defaultDraftTimeout = 45 * time.Second

// Store is the persistence surface the drafting engine needs.
type Store interface {
	GetRole(ctx context.Context, companyID, id uuid.UUID) (*types.Role, error)
	GetVoiceProfile(ctx context.Context, companyID uuid.UUID) (*types.VoiceProfile, error)
	HasActiveCommunication(ctx context.Context, companyID, candidateID uuid.UUID, commType types.CommunicationType) (bool, error)
	CountCommunicationsByCandidate(ctx context.Context, companyID, candidateID uuid.UUID) (int, error)
	CreateCommunication(ctx context.Context, c *types.Communication) (*types.Communication, error)
	ListOverdueCandidates(ctx context.Context, companyID uuid.UUID, minDays int) ([]types.Candidate, error)
}

// Engine drafts candidate communications in the company's calibrated voice
// and scores each draft before persisting it. Drafts always land in draft
// status; routing past that is the gate's job.
type Engine struct {
	store   Store
	llm     llm.Client
	eval    *confidence.Evaluator
	logger  *zap.Logger
	timeout time.Duration
}

func NewEngine(store Store, client llm.Client, eval *confidence.Evaluator, logger *zap.Logger) *Engine {
	return &Engine{
		store:   store,
		llm:     client,
		eval:    eval,
		logger:  logger,
		timeout: defaultDraftTimeout,
	}
}

type draftResponse struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Draft generates, scores, and persists one communication for the candidate.
// The candidate record must carry whatever the type needs: every type needs
// a name and email, rejections and re-engagements need a role, and
// re-engagements additionally need prior contact history.
func (e *Engine) Draft(ctx context.Context, candidate *types.Candidate, commType types.CommunicationType) (*types.Communication, error) {
	if candidate == nil {
		return nil, &InsufficientContextError{Message: "candidate is required"}
	}
	if !commType.Valid() {
		return nil, fmt.Errorf("unknown communication type %q", commType)
	}
	if strings.TrimSpace(candidate.Name) == "" || strings.TrimSpace(candidate.Email) == "" {
		return nil, &InsufficientContextError{Message: "candidate name and email are required"}
	}

	active, err := e.store.HasActiveCommunication(ctx, candidate.CompanyID, candidate.ID, commType)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrActiveCommunication
	}

	role, err := e.resolveRole(ctx, candidate, commType)
	if err != nil {
		return nil, err
	}

	if commType == types.TypeReengagement {
		n, err := e.store.CountCommunicationsByCandidate(ctx, candidate.CompanyID, candidate.ID)
		if err != nil {
			return nil, err
		}
		if n == 0 && !candidate.Status.Terminal() {
			return nil, &InsufficientContextError{Message: "re-engagement requires prior interaction history"}
		}
	}

	profile, err := e.store.GetVoiceProfile(ctx, candidate.CompanyID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &InsufficientContextError{Message: "voice profile is not calibrated yet"}
	}

	subject, body, err := e.generate(ctx, candidate, role, profile, commType)
	if err != nil {
		return nil, err
	}

	comm := &types.Communication{
		CompanyID:     candidate.CompanyID,
		CandidateID:   candidate.ID,
		Type:          commType,
		Status:        types.CommDraft,
		Subject:       subject,
		Body:          body,
		OriginalDraft: body,
	}

	breakdown, err := e.eval.Evaluate(body, candidate, role, profile)
	if err != nil {
		// An unscoreable draft is still worth keeping, but it must
		// never auto-send.
		e.logger.Warn("draft evaluation failed",
			zap.String("candidate_id", candidate.ID.String()),
			zap.Error(err))
		breakdown = types.ConfidenceBreakdown{
			SchemaVersion: types.BreakdownSchemaVersion,
			Explanation:   "automatic evaluation failed; manual review required",
		}
	}
	comm.Breakdown = breakdown
	comm.ConfidenceScore = e.eval.Overall(breakdown)

	created, err := e.store.CreateCommunication(ctx, comm)
	if err != nil {
		return nil, err
	}
	e.logger.Info("communication drafted",
		zap.String("communication_id", created.ID.String()),
		zap.String("candidate_id", candidate.ID.String()),
		zap.String("type", string(commType)),
		zap.Float64("score", created.ConfidenceScore))
	return created, nil
}

func (e *Engine) resolveRole(ctx context.Context, candidate *types.Candidate, commType types.CommunicationType) (*types.Role, error) {
	if candidate.RoleID == nil {
		if commType == types.TypeNudge {
			return nil, nil
		}
		return nil, &InsufficientContextError{Message: fmt.Sprintf("%s requires an associated role", commType)}
	}
	role, err := e.store.GetRole(ctx, candidate.CompanyID, *candidate.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, &InsufficientContextError{Message: "candidate's role no longer exists"}
	}
	return role, nil
}

func (e *Engine) generate(ctx context.Context, candidate *types.Candidate, role *types.Role, profile *types.VoiceProfile, commType types.CommunicationType) (subject, body string, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := e.buildPrompt(candidate, role, profile, commType)
	raw, err := e.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return "", "", &InsufficientContextError{Message: "draft generation failed", Cause: err}
	}

	var resp draftResponse
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &resp); err != nil {
		return "", "", &InsufficientContextError{Message: "model returned malformed draft", Cause: err}
	}
	if strings.TrimSpace(resp.Subject) == "" || strings.TrimSpace(resp.Body) == "" {
		return "", "", &InsufficientContextError{Message: "model returned an empty draft"}
	}
	return resp.Subject, resp.Body, nil
}

func (e *Engine) buildPrompt(candidate *types.Candidate, role *types.Role, profile *types.VoiceProfile, commType types.CommunicationType) string {
	system := prompts.Format(prompts.MustGet("drafting.json", "draft-system"), map[string]string{
		"ToneClass":      string(profile.ToneClass),
		"AvgLengthWords": fmt.Sprintf("%d", profile.AvgLengthWords),
		"SignOff":        profile.SignOff,
		"FavoredPhrases": joinOrNone(profile.FavoredPhrases),
		"AvoidedPhrases": joinOrNone(profile.AvoidedPhrases),
	})

	roleTitle := "your application"
	var requirements []string
	if role != nil {
		roleTitle = role.Title
		requirements = role.Requirements
	}

	var contextKey string
	switch commType {
	case types.TypeRejection:
		contextKey = "rejection-context"
	case types.TypeNudge:
		contextKey = "nudge-context"
	case types.TypeReengagement:
		contextKey = "reengagement-context"
	}
	contextPart := prompts.Format(prompts.MustGet("drafting.json", contextKey), map[string]string{
		"CandidateName":  candidate.Name,
		"CandidateEmail": candidate.Email,
		"RoleTitle":      roleTitle,
		"Skills":         joinOrNone(candidate.Skills),
		"Requirements":   joinOrNone(requirements),
		"Stage":          string(candidate.Status),
		"DaysInStage":    fmt.Sprintf("%d", candidate.DaysInStage),
	})

	return system + "\n\n" + contextPart
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none listed"
	}
	return strings.Join(items, ", ")
}
