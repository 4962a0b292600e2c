package schemas

import (
	"encoding/json"
	"testing"

	"github.com/candorhq/candor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfidenceBreakdown_ValidDocument(t *testing.T) {
	b := types.ConfidenceBreakdown{
		SchemaVersion: types.BreakdownSchemaVersion,
		Specificity:   0.9,
		VoiceMatch:    0.85,
		Safety:        0.95,
		Length:        0.8,
		Explanation:   "strong role reference",
	}
	data, err := json.Marshal(b)
	require.NoError(t, err)

	assert.NoError(t, ValidateConfidenceBreakdown(data))
}

func TestValidateConfidenceBreakdown_MissingRequiredField(t *testing.T) {
	err := ValidateConfidenceBreakdown([]byte(`{"schema_version":1,"specificity":0.5,"voice_match":0.5,"length":0.5}`))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ConfidenceBreakdownSchema, verr.Schema)
	assert.NotEmpty(t, verr.Errors)
}

func TestValidateConfidenceBreakdown_ScoreOutOfRange(t *testing.T) {
	err := ValidateConfidenceBreakdown([]byte(`{"schema_version":1,"specificity":1.5,"voice_match":0.5,"safety":0.5,"length":0.5}`))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateVoiceProfile_ValidDocument(t *testing.T) {
	doc := `{"schema_version":1,"tone_class":"warm_direct","sign_off":"Best,","avg_length_words":120,"sample_count":3,"version":2}`
	assert.NoError(t, ValidateVoiceProfile([]byte(doc)))
}

func TestValidateVoiceProfile_UnknownToneClass(t *testing.T) {
	doc := `{"schema_version":1,"tone_class":"sarcastic","sign_off":"Best,","avg_length_words":120}`
	err := ValidateVoiceProfile([]byte(doc))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateVoiceProfile_RejectsUnknownFields(t *testing.T) {
	doc := `{"schema_version":1,"tone_class":"casual","sign_off":"Cheers","avg_length_words":80,"mood":"upbeat"}`
	err := ValidateVoiceProfile([]byte(doc))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidate_UnknownSchemaName(t *testing.T) {
	err := Validate("no_such_schema", []byte(`{}`))
	assert.Error(t, err)
}
