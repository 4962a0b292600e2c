package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu         sync.Mutex
	candidates []types.Candidate
	sent       []types.Communication
	matches    []types.TalentBankMatch
	snapshots  []types.ScoreSnapshot
	candor     float64
}

func (s *fakeStore) ListCandidates(_ context.Context, _ uuid.UUID, _ time.Time) ([]types.Candidate, error) {
	return s.candidates, nil
}

func (s *fakeStore) ListSentCommunications(_ context.Context, _ uuid.UUID, _ time.Time) ([]types.Communication, error) {
	return s.sent, nil
}

func (s *fakeStore) ListMatches(_ context.Context, _ uuid.UUID, _ time.Time) ([]types.TalentBankMatch, error) {
	return s.matches, nil
}

func (s *fakeStore) InsertScoreSnapshot(_ context.Context, snap *types.ScoreSnapshot) (*types.ScoreSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := *snap
	created.ID = uuid.New()
	s.snapshots = append(s.snapshots, created)
	return &created, nil
}

func (s *fakeStore) UpdateCandorScore(_ context.Context, _ uuid.UUID, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candor = score
	return nil
}

func sentComm(candidateID uuid.UUID, score float64, sentAt time.Time) types.Communication {
	return types.Communication{
		ID:              uuid.New(),
		CandidateID:     candidateID,
		Type:            types.TypeRejection,
		Status:          types.CommSent,
		ConfidenceScore: score,
		SentAt:          &sentAt,
	}
}

func newAggregator(t *testing.T, store Store) *Aggregator {
	t.Helper()
	a, err := New(store, DefaultWeights, zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestWeights_Validate(t *testing.T) {
	require.NoError(t, DefaultWeights.Validate())

	bad := Weights{Speed: 0.5, Quality: 0.5, Followthrough: 0.5, Reengage: 0.5}
	assert.Error(t, bad.Validate())

	negative := Weights{Speed: -0.1, Quality: 0.6, Followthrough: 0.3, Reengage: 0.2}
	assert.Error(t, negative.Validate())
}

func TestRecompute_ExactValues(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	companyID := uuid.New()

	// Two candidates heard back: one in 12h (full marks), one in 96h
	// (halfway through the decay window). One rejected candidate was
	// never contacted.
	fast := types.Candidate{ID: uuid.New(), Status: types.StatusRejected, CreatedAt: base}
	slow := types.Candidate{ID: uuid.New(), Status: types.StatusRejected, CreatedAt: base}
	ghosted := types.Candidate{ID: uuid.New(), Status: types.StatusRejected, CreatedAt: base}
	active := types.Candidate{ID: uuid.New(), Status: types.StatusScreening, CreatedAt: base}

	store := &fakeStore{
		candidates: []types.Candidate{fast, slow, ghosted, active},
		sent: []types.Communication{
			sentComm(fast.ID, 0.9, base.Add(12*time.Hour)),
			sentComm(slow.ID, 0.7, base.Add(96*time.Hour)),
		},
		matches: []types.TalentBankMatch{
			{ID: uuid.New(), Actioned: true},
			{ID: uuid.New(), Actioned: false},
		},
	}
	a := newAggregator(t, store)

	snap, err := a.Recompute(context.Background(), companyID, base.Add(200*time.Hour))
	require.NoError(t, err)

	// speed: (100 + 50) / 2
	assert.InDelta(t, 75.0, snap.SpeedScore, 1e-9)
	// quality: mean(0.9, 0.7) * 100
	assert.InDelta(t, 80.0, snap.QualityScore, 1e-9)
	// followthrough: 2 of 3 terminal candidates contacted
	assert.InDelta(t, 66.7, snap.FollowthroughScore, 1e-9)
	// reengage: 1 of 2 matches actioned
	assert.InDelta(t, 50.0, snap.ReengageScore, 1e-9)
	// 0.25*75 + 0.35*80 + 0.25*66.7 + 0.15*50 = 70.925 -> 70.9
	assert.InDelta(t, 70.9, snap.OverallScore, 1e-9)

	assert.Equal(t, 70.9, store.candor)
	assert.Len(t, store.snapshots, 1)
}

func TestRecompute_EmptyCompanyScoresZero(t *testing.T) {
	store := &fakeStore{}
	a := newAggregator(t, store)

	snap, err := a.Recompute(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, snap.SpeedScore)
	assert.Zero(t, snap.QualityScore)
	assert.Zero(t, snap.FollowthroughScore)
	assert.Zero(t, snap.ReengageScore)
	assert.Zero(t, snap.OverallScore)
}

func TestRecompute_Idempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cand := types.Candidate{ID: uuid.New(), Status: types.StatusRejected, CreatedAt: base}
	store := &fakeStore{
		candidates: []types.Candidate{cand},
		sent:       []types.Communication{sentComm(cand.ID, 0.83, base.Add(30*time.Hour))},
	}
	a := newAggregator(t, store)
	asOf := base.Add(48 * time.Hour)

	first, err := a.Recompute(context.Background(), uuid.New(), asOf)
	require.NoError(t, err)
	second, err := a.Recompute(context.Background(), first.CompanyID, asOf)
	require.NoError(t, err)

	assert.Equal(t, first.SpeedScore, second.SpeedScore)
	assert.Equal(t, first.QualityScore, second.QualityScore)
	assert.Equal(t, first.FollowthroughScore, second.FollowthroughScore)
	assert.Equal(t, first.ReengageScore, second.ReengageScore)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.RecordedAt, second.RecordedAt)
}

func TestSpeedScore_Boundaries(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mk := func(gap time.Duration) float64 {
		cand := types.Candidate{ID: uuid.New(), CreatedAt: base}
		return speedScore(
			[]types.Candidate{cand},
			[]types.Communication{sentComm(cand.ID, 0.9, base.Add(gap))},
		)
	}

	assert.InDelta(t, 100.0, mk(time.Hour), 1e-9)
	assert.InDelta(t, 100.0, mk(24*time.Hour), 1e-9)
	assert.InDelta(t, 0.0, mk(168*time.Hour), 1e-9)
	assert.InDelta(t, 0.0, mk(300*time.Hour), 1e-9)
	assert.InDelta(t, 50.0, mk(96*time.Hour), 1e-9)
}

func TestSpeedScore_UsesFirstSend(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cand := types.Candidate{ID: uuid.New(), CreatedAt: base}
	got := speedScore(
		[]types.Candidate{cand},
		[]types.Communication{
			sentComm(cand.ID, 0.9, base.Add(200*time.Hour)),
			sentComm(cand.ID, 0.9, base.Add(2*time.Hour)),
		},
	)
	assert.InDelta(t, 100.0, got, 1e-9)
}

func TestFollowthrough_IgnoresActiveCandidates(t *testing.T) {
	active := types.Candidate{ID: uuid.New(), Status: types.StatusInterview}
	got := followthroughScore([]types.Candidate{active}, nil)
	assert.Zero(t, got)
}
