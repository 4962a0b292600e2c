package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// fullSpeedWindow is the response window that earns a full speed score.
	fullSpeedWindow = 24 * time.Hour

	// zeroSpeedWindow is where the speed score bottoms out.
	zeroSpeedWindow = 168 * time.Hour
)

// Weights controls the blend of the four Candor Score dimensions. They must
// sum to 1.
type Weights struct {
	Speed         float64 `json:"speed"`
	Quality       float64 `json:"quality"`
	Followthrough float64 `json:"followthrough"`
	Reengage      float64 `json:"reengage"`
}

// DefaultWeights is the standard dimension blend.
var DefaultWeights = Weights{
	Speed:         0.25,
	Quality:       0.35,
	Followthrough: 0.25,
	Reengage:      0.15,
}

// Validate checks that the weights form a convex combination.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"speed": w.Speed, "quality": w.Quality,
		"followthrough": w.Followthrough, "reengage": w.Reengage,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight %q out of range: %v", name, v)
		}
	}
	sum := w.Speed + w.Quality + w.Followthrough + w.Reengage
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Store is the persistence surface the aggregator reads from and writes to.
type Store interface {
	ListCandidates(ctx context.Context, companyID uuid.UUID, asOf time.Time) ([]types.Candidate, error)
	ListSentCommunications(ctx context.Context, companyID uuid.UUID, asOf time.Time) ([]types.Communication, error)
	ListMatches(ctx context.Context, companyID uuid.UUID, asOf time.Time) ([]types.TalentBankMatch, error)
	InsertScoreSnapshot(ctx context.Context, s *types.ScoreSnapshot) (*types.ScoreSnapshot, error)
	UpdateCandorScore(ctx context.Context, companyID uuid.UUID, score float64) error
}

// Aggregator computes Candor Score snapshots. Recomputing for the same
// company and as-of instant always yields the same dimension values, so a
// snapshot can be safely re-derived at any time.
type Aggregator struct {
	store   Store
	weights Weights
	logger  *zap.Logger
	group   singleflight.Group
}

func New(store Store, weights Weights, logger *zap.Logger) (*Aggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{store: store, weights: weights, logger: logger}, nil
}

// Recompute derives a fresh snapshot for the company as of the given
// instant, persists it, and updates the company's headline score.
// Concurrent recomputes for the same company and instant collapse into one.
func (a *Aggregator) Recompute(ctx context.Context, companyID uuid.UUID, asOf time.Time) (*types.ScoreSnapshot, error) {
	asOf = asOf.UTC().Truncate(time.Second)
	key := companyID.String() + "@" + asOf.Format(time.RFC3339)

	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		return a.recompute(ctx, companyID, asOf)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.ScoreSnapshot), nil
}

func (a *Aggregator) recompute(ctx context.Context, companyID uuid.UUID, asOf time.Time) (*types.ScoreSnapshot, error) {
	candidates, err := a.store.ListCandidates(ctx, companyID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	sent, err := a.store.ListSentCommunications(ctx, companyID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent communications: %w", err)
	}
	matches, err := a.store.ListMatches(ctx, companyID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	snapshot := &types.ScoreSnapshot{
		CompanyID:          companyID,
		SpeedScore:         round1(speedScore(candidates, sent)),
		QualityScore:       round1(qualityScore(sent)),
		FollowthroughScore: round1(followthroughScore(candidates, sent)),
		ReengageScore:      round1(reengageScore(matches)),
		RecordedAt:         asOf,
	}
	snapshot.OverallScore = round1(
		a.weights.Speed*snapshot.SpeedScore +
			a.weights.Quality*snapshot.QualityScore +
			a.weights.Followthrough*snapshot.FollowthroughScore +
			a.weights.Reengage*snapshot.ReengageScore)

	created, err := a.store.InsertScoreSnapshot(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	if err := a.store.UpdateCandorScore(ctx, companyID, created.OverallScore); err != nil {
		return nil, err
	}

	a.logger.Info("candor score recomputed",
		zap.String("company_id", companyID.String()),
		zap.Float64("overall", created.OverallScore),
		zap.Time("as_of", asOf))
	return created, nil
}

// speedScore measures how quickly candidates hear back. Each candidate with
// at least one sent communication contributes the score for the gap between
// joining the pipeline and that first send: 100 within a day, falling
// linearly to 0 at a week. Candidates never written to are excluded rather
// than penalized; follow-through covers that failure mode.
func speedScore(candidates []types.Candidate, sent []types.Communication) float64 {
	firstSend := make(map[uuid.UUID]time.Time)
	for _, c := range sent {
		if c.SentAt == nil {
			continue
		}
		if t, ok := firstSend[c.CandidateID]; !ok || c.SentAt.Before(t) {
			firstSend[c.CandidateID] = *c.SentAt
		}
	}

	var total float64
	var n int
	for _, cand := range candidates {
		at, ok := firstSend[cand.ID]
		if !ok {
			continue
		}
		gap := at.Sub(cand.CreatedAt)
		n++
		switch {
		case gap <= fullSpeedWindow:
			total += 100
		case gap >= zeroSpeedWindow:
			// contributes zero
		default:
			frac := float64(gap-fullSpeedWindow) / float64(zeroSpeedWindow-fullSpeedWindow)
			total += 100 * (1 - frac)
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// qualityScore is the mean confidence of everything actually sent, scaled
// to 0..100.
func qualityScore(sent []types.Communication) float64 {
	if len(sent) == 0 {
		return 0
	}
	var total float64
	for _, c := range sent {
		total += c.ConfidenceScore
	}
	return 100 * total / float64(len(sent))
}

// followthroughScore is the share of closed-out candidates who received at
// least one communication before the pipeline moved on without them.
func followthroughScore(candidates []types.Candidate, sent []types.Communication) float64 {
	contacted := make(map[uuid.UUID]bool)
	for _, c := range sent {
		contacted[c.CandidateID] = true
	}

	var terminal, covered int
	for _, cand := range candidates {
		if !cand.Status.Terminal() {
			continue
		}
		terminal++
		if contacted[cand.ID] {
			covered++
		}
	}
	if terminal == 0 {
		return 0
	}
	return 100 * float64(covered) / float64(terminal)
}

// reengageScore is the share of talent-bank match suggestions a company
// acted on.
func reengageScore(matches []types.TalentBankMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	var actioned int
	for _, m := range matches {
		if m.Actioned {
			actioned++
		}
	}
	return 100 * float64(actioned) / float64(len(matches))
}

// round1 rounds to one decimal place so repeated recomputes of the same
// instant serialize to identical values.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
