package types

import (
	"time"

	"github.com/google/uuid"
)

// ToneClass is a company's baseline communication tone.
type ToneClass string

// Baseline tone classes
const (
	ToneProfessional ToneClass = "professional"
	ToneWarmDirect   ToneClass = "warm_direct"
	ToneCasual       ToneClass = "casual"
)

// Valid reports whether t is a known tone class.
func (t ToneClass) Valid() bool {
	switch t {
	case ToneProfessional, ToneWarmDirect, ToneCasual:
		return true
	}
	return false
}

// VoiceProfileSchemaVersion is the current voice profile shape version.
const VoiceProfileSchemaVersion = 1

// VoiceProfile is a company's calibrated writing style, extracted from
// sample emails during onboarding or recalibration. The drafting engine
// reads it; only the extraction path and explicit manual edits write it,
// and writes always replace the whole structure.
type VoiceProfile struct {
	SchemaVersion    int       `json:"schema_version"`
	ToneClass        ToneClass `json:"tone_class"`
	SignOff          string    `json:"sign_off"`
	AvgLengthWords   int       `json:"avg_length_words"`
	FavoredPhrases   []string  `json:"favored_phrases,omitempty"`
	AvoidedPhrases   []string  `json:"avoided_phrases,omitempty"`
	StructuralHabits []string  `json:"structural_habits,omitempty"`
	SampleCount      int       `json:"sample_count"`
	Version          int       `json:"version"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Company is the tenant every other entity is partitioned under.
type Company struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	SenderName  string        `json:"sender_name,omitempty"`
	SenderEmail string        `json:"sender_email,omitempty"`
	CandorScore float64       `json:"candor_score"`
	Voice       *VoiceProfile `json:"voice_profile,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
