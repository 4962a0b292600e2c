package talentbank

import (
	"context"
	"testing"
	"time"

	"github.com/candorhq/candor/internal/db"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	roles      map[uuid.UUID]*types.Role
	candidates []types.Candidate
	matches    map[uuid.UUID]*types.TalentBankMatch
	reengaged  map[uuid.UUID]types.ReengagementStatus
}

func newStore() *fakeStore {
	return &fakeStore{
		roles:     make(map[uuid.UUID]*types.Role),
		matches:   make(map[uuid.UUID]*types.TalentBankMatch),
		reengaged: make(map[uuid.UUID]types.ReengagementStatus),
	}
}

func (s *fakeStore) GetRole(_ context.Context, _, id uuid.UUID) (*types.Role, error) {
	return s.roles[id], nil
}

func (s *fakeStore) ListTalentBankCandidates(_ context.Context, _ uuid.UUID) ([]types.Candidate, error) {
	return s.candidates, nil
}

func (s *fakeStore) UpsertMatch(_ context.Context, m *types.TalentBankMatch) (*types.TalentBankMatch, error) {
	for _, existing := range s.matches {
		if existing.CandidateID == m.CandidateID && existing.RoleID == m.RoleID {
			existing.MatchScore = m.MatchScore
			cp := *existing
			return &cp, nil
		}
	}
	created := *m
	created.ID = uuid.New()
	s.matches[created.ID] = &created
	cp := created
	return &cp, nil
}

func (s *fakeStore) ActionMatch(_ context.Context, _, id uuid.UUID) (*types.TalentBankMatch, error) {
	m, ok := s.matches[id]
	if !ok {
		return nil, &db.NotFoundError{Entity: "match", ID: id}
	}
	if m.Actioned {
		return nil, &db.NotFoundError{Entity: "match", ID: id}
	}
	m.Actioned = true
	now := time.Now()
	m.ActionedAt = &now
	cp := *m
	return &cp, nil
}

func (s *fakeStore) SetReengagementStatus(_ context.Context, _, id uuid.UUID, status types.ReengagementStatus) error {
	s.reengaged[id] = status
	return nil
}

func openRole(title string, reqs ...string) *types.Role {
	return &types.Role{
		ID:           uuid.New(),
		CompanyID:    uuid.New(),
		Title:        title,
		Requirements: reqs,
		Status:       types.RoleOpen,
	}
}

func bankCandidate(skills ...string) types.Candidate {
	return types.Candidate{
		ID:                uuid.New(),
		Name:              "Dana Reyes",
		Email:             "dana@example.com",
		Status:            types.StatusRejected,
		Skills:            skills,
		AddedToTalentBank: true,
	}
}

func TestTokenOverlap(t *testing.T) {
	role := openRole("Backend Engineer", "Go", "Postgres", "Kubernetes")

	full := bankCandidate("Go", "Postgres", "Kubernetes", "Backend")
	none := bankCandidate("Photoshop")
	half := bankCandidate("golang", "k8s")

	assert.InDelta(t, 1.0, TokenOverlap(&full, role), 1e-9)
	assert.InDelta(t, 0.0, TokenOverlap(&none, role), 1e-9)
	// aliases fold golang->go and k8s->kubernetes; 2 of 4 role tokens
	assert.InDelta(t, 0.5, TokenOverlap(&half, role), 1e-9)
}

func TestTokenOverlap_Deterministic(t *testing.T) {
	role := openRole("Data Engineer", "Python", "Spark", "Airflow")
	cand := bankCandidate("Python", "Airflow")
	first := TokenOverlap(&cand, role)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, TokenOverlap(&cand, role))
	}
}

func TestMatchRole_OrdersAndFilters(t *testing.T) {
	store := newStore()
	role := openRole("Backend Engineer", "Go", "Postgres", "Kubernetes", "Terraform")
	store.roles[role.ID] = role

	strong := bankCandidate("Go", "Postgres", "Kubernetes", "Terraform", "Backend")
	partial := bankCandidate("Go", "Postgres")
	weak := bankCandidate("Photoshop")
	store.candidates = []types.Candidate{weak, partial, strong}

	m := New(store, nil, DefaultMinScore, zap.NewNop())
	out, err := m.MatchRole(context.Background(), role.CompanyID, role.ID)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, strong.ID, out[0].CandidateID)
	assert.Equal(t, partial.ID, out[1].CandidateID)
	assert.Greater(t, out[0].MatchScore, out[1].MatchScore)
}

func TestMatchRole_RerunUpdatesInsteadOfDuplicating(t *testing.T) {
	store := newStore()
	role := openRole("Backend Engineer", "Go", "Postgres")
	store.roles[role.ID] = role
	store.candidates = []types.Candidate{bankCandidate("Go", "Postgres")}

	m := New(store, nil, DefaultMinScore, zap.NewNop())
	first, err := m.MatchRole(context.Background(), role.CompanyID, role.ID)
	require.NoError(t, err)
	second, err := m.MatchRole(context.Background(), role.CompanyID, role.ID)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Len(t, store.matches, 1)
}

func TestMatchRole_TieBreaksOnCandidateID(t *testing.T) {
	store := newStore()
	role := openRole("Backend Engineer", "Go", "Postgres")
	store.roles[role.ID] = role
	a := bankCandidate("Go", "Postgres")
	b := bankCandidate("Go", "Postgres")
	store.candidates = []types.Candidate{a, b}

	m := New(store, nil, DefaultMinScore, zap.NewNop())
	out, err := m.MatchRole(context.Background(), role.CompanyID, role.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Less(t, out[0].CandidateID.String(), out[1].CandidateID.String())
}

func TestMatchRole_ClosedRoleRejected(t *testing.T) {
	store := newStore()
	role := openRole("Backend Engineer", "Go")
	role.Status = types.RoleClosed
	store.roles[role.ID] = role

	m := New(store, nil, DefaultMinScore, zap.NewNop())
	_, err := m.MatchRole(context.Background(), role.CompanyID, role.ID)
	assert.Error(t, err)
}

func TestAction_MarksMatchAndStartsReengagement(t *testing.T) {
	store := newStore()
	role := openRole("Backend Engineer", "Go", "Postgres")
	store.roles[role.ID] = role
	cand := bankCandidate("Go", "Postgres")
	store.candidates = []types.Candidate{cand}

	m := New(store, nil, DefaultMinScore, zap.NewNop())
	out, err := m.MatchRole(context.Background(), role.CompanyID, role.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)

	actioned, err := m.Action(context.Background(), role.CompanyID, out[0].ID)
	require.NoError(t, err)
	assert.True(t, actioned.Actioned)
	assert.NotNil(t, actioned.ActionedAt)
	assert.Equal(t, types.ReengageContacted, store.reengaged[cand.ID])

	_, err = m.Action(context.Background(), role.CompanyID, out[0].ID)
	assert.Error(t, err)
}
