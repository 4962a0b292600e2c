package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/candorhq/candor/internal/llm"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	profiles map[uuid.UUID]*types.VoiceProfile
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[uuid.UUID]*types.VoiceProfile)}
}

func (s *fakeStore) GetVoiceProfile(_ context.Context, companyID uuid.UUID) (*types.VoiceProfile, error) {
	p, ok := s.profiles[companyID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SaveVoiceProfile(_ context.Context, companyID uuid.UUID, profile *types.VoiceProfile) error {
	cp := *profile
	s.profiles[companyID] = &cp
	return nil
}

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Close() error { return nil }

const habitsJSON = `{"favored_phrases": ["really appreciated"], "avoided_phrases": ["per our records"], "structural_habits": ["first-name greeting"]}`

const sampleEmail = `Hi Jordan,

Thanks so much for taking the time to interview with us this week. We really appreciated hearing about your platform work.

We have decided to move forward with another candidate for this role. I'd genuinely encourage you to apply again when something closer to your background opens up.

Best,
Sam`

func TestExtract_NoSamplesProducesBaseline(t *testing.T) {
	store := newFakeStore()
	ex := NewExtractor(store, &fakeLLM{}, zap.NewNop())
	companyID := uuid.New()

	p, err := ex.Extract(context.Background(), companyID, types.ToneWarmDirect, nil)
	require.NoError(t, err)
	assert.Equal(t, types.VoiceProfileSchemaVersion, p.SchemaVersion)
	assert.Equal(t, types.ToneWarmDirect, p.ToneClass)
	assert.Equal(t, "Best,", p.SignOff)
	assert.Equal(t, defaultAvgLengthWords, p.AvgLengthWords)
	assert.Zero(t, p.SampleCount)
	assert.Equal(t, 1, p.Version)
	assert.Empty(t, p.FavoredPhrases)
}

func TestExtract_DerivesStatsFromSamples(t *testing.T) {
	store := newFakeStore()
	ex := NewExtractor(store, &fakeLLM{response: habitsJSON}, zap.NewNop())
	companyID := uuid.New()

	p, err := ex.Extract(context.Background(), companyID, types.ToneWarmDirect, []string{sampleEmail, sampleEmail})
	require.NoError(t, err)
	assert.Equal(t, "Best,", p.SignOff)
	assert.Equal(t, 2, p.SampleCount)
	assert.Equal(t, []string{"really appreciated"}, p.FavoredPhrases)
	assert.Equal(t, []string{"per our records"}, p.AvoidedPhrases)
	assert.Greater(t, p.AvgLengthWords, 0)

	saved := store.profiles[companyID]
	require.NotNil(t, saved)
	assert.Equal(t, p.Version, saved.Version)
}

func TestExtract_VersionIncrements(t *testing.T) {
	store := newFakeStore()
	ex := NewExtractor(store, &fakeLLM{response: habitsJSON}, zap.NewNop())
	companyID := uuid.New()

	first, err := ex.Extract(context.Background(), companyID, types.ToneProfessional, nil)
	require.NoError(t, err)
	second, err := ex.Extract(context.Background(), companyID, types.ToneCasual, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, types.ToneCasual, second.ToneClass)
}

func TestExtract_InvalidTone(t *testing.T) {
	ex := NewExtractor(newFakeStore(), &fakeLLM{}, zap.NewNop())
	_, err := ex.Extract(context.Background(), uuid.New(), types.ToneClass("sassy"), nil)
	var xe *ExtractionError
	require.ErrorAs(t, err, &xe)
}

func TestExtract_LLMFailureKeepsOldProfile(t *testing.T) {
	store := newFakeStore()
	companyID := uuid.New()
	store.profiles[companyID] = &types.VoiceProfile{Version: 3, ToneClass: types.ToneProfessional}

	ex := NewExtractor(store, &fakeLLM{err: errors.New("model timeout")}, zap.NewNop())
	_, err := ex.Extract(context.Background(), companyID, types.ToneProfessional, []string{sampleEmail})
	var xe *ExtractionError
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, 3, store.profiles[companyID].Version)
}

func TestDetectSignOff(t *testing.T) {
	assert.Equal(t, "Best,", detectSignOff([]string{sampleEmail}))
	assert.Equal(t, "", detectSignOff([]string{"no closing here just one line"}))

	cheers := "Hi,\n\nShort note.\n\nCheers,\nSam"
	assert.Equal(t, "Cheers,", detectSignOff([]string{cheers, cheers, sampleEmail}))
}

func TestRecordEdit_LearnsPhrasesAndBumpsVersion(t *testing.T) {
	store := newFakeStore()
	companyID := uuid.New()
	store.profiles[companyID] = &types.VoiceProfile{
		Version:        2,
		ToneClass:      types.ToneWarmDirect,
		AvgLengthWords: 100,
	}
	ex := NewExtractor(store, &fakeLLM{}, zap.NewNop())

	original := "We regret to inform you that your application was unsuccessful. We wish you luck."
	edited := "Thanks so much for giving us your time this week. We wish you luck."
	require.NoError(t, ex.RecordEdit(context.Background(), companyID, original, edited))

	p := store.profiles[companyID]
	assert.Equal(t, 3, p.Version)
	assert.Contains(t, p.AvoidedPhrases, "We regret to inform you that your application was unsuccessful")
	assert.Contains(t, p.FavoredPhrases, "Thanks so much for giving us your time this week")
	assert.NotEqual(t, 100, p.AvgLengthWords)
}

func TestRecordEdit_NoChangeIsNoOp(t *testing.T) {
	store := newFakeStore()
	companyID := uuid.New()
	store.profiles[companyID] = &types.VoiceProfile{Version: 1}
	ex := NewExtractor(store, &fakeLLM{}, zap.NewNop())

	body := "Thanks again for interviewing with us this week."
	require.NoError(t, ex.RecordEdit(context.Background(), companyID, body, body))
	assert.Equal(t, 1, store.profiles[companyID].Version)
}

func TestRecordEdit_NoProfileIsNoOp(t *testing.T) {
	store := newFakeStore()
	ex := NewExtractor(store, &fakeLLM{}, zap.NewNop())
	err := ex.RecordEdit(context.Background(), uuid.New(), "Original sentence with enough words here.", "A different sentence with enough words here.")
	require.NoError(t, err)
}
