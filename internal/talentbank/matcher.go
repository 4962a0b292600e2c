package talentbank

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMinScore is the similarity floor below which a candidate/role pair
// is not worth suggesting.
const DefaultMinScore = 0.3

// Store is the persistence surface the matcher needs.
type Store interface {
	GetRole(ctx context.Context, companyID, id uuid.UUID) (*types.Role, error)
	ListTalentBankCandidates(ctx context.Context, companyID uuid.UUID) ([]types.Candidate, error)
	UpsertMatch(ctx context.Context, m *types.TalentBankMatch) (*types.TalentBankMatch, error)
	ActionMatch(ctx context.Context, companyID, id uuid.UUID) (*types.TalentBankMatch, error)
	SetReengagementStatus(ctx context.Context, companyID, id uuid.UUID, status types.ReengagementStatus) error
}

// Matcher surfaces talent-bank candidates for newly opened roles. Matching
// is deterministic and idempotent: re-running a role refreshes scores on
// existing suggestions instead of duplicating them.
type Matcher struct {
	store    Store
	sim      Similarity
	minScore float64
	logger   *zap.Logger
}

func New(store Store, sim Similarity, minScore float64, logger *zap.Logger) *Matcher {
	if sim == nil {
		sim = TokenOverlap
	}
	return &Matcher{store: store, sim: sim, minScore: minScore, logger: logger}
}

// MatchRole scores every talent-bank candidate against the role and upserts
// a suggestion for each that clears the floor. Results come back ordered by
// score descending, candidate ID ascending on ties.
func (m *Matcher) MatchRole(ctx context.Context, companyID, roleID uuid.UUID) ([]types.TalentBankMatch, error) {
	role, err := m.store.GetRole(ctx, companyID, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, fmt.Errorf("role %s not found", roleID)
	}
	if role.Status != types.RoleOpen {
		return nil, fmt.Errorf("role %s is not open", roleID)
	}

	candidates, err := m.store.ListTalentBankCandidates(ctx, companyID)
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	now := time.Now().UTC()
	var out []types.TalentBankMatch
	for i := range candidates {
		cand := &candidates[i]
		score := m.sim(cand, role)
		if score < m.minScore {
			continue
		}
		created, err := m.store.UpsertMatch(ctx, &types.TalentBankMatch{
			CompanyID:   companyID,
			CandidateID: cand.ID,
			RoleID:      roleID,
			MatchScore:  score,
			SuggestedAt: now,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, *created)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		return out[i].CandidateID.String() < out[j].CandidateID.String()
	})

	m.logger.Info("talent bank matched",
		zap.String("role_id", roleID.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("suggestions", len(out)))
	return out, nil
}

// Action marks a suggestion as acted on and moves the candidate into the
// re-engagement flow. Acting on an already actioned suggestion is an error.
func (m *Matcher) Action(ctx context.Context, companyID, matchID uuid.UUID) (*types.TalentBankMatch, error) {
	match, err := m.store.ActionMatch(ctx, companyID, matchID)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetReengagementStatus(ctx, companyID, match.CandidateID, types.ReengageContacted); err != nil {
		return nil, err
	}
	return match, nil
}
