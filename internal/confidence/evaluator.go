// Package confidence scores drafted emails along fixed dimensions and
// combines them into the single value the send gate decides on.
package confidence

import (
	"fmt"
	"math"
	"strings"

	"github.com/candorhq/candor/internal/types"
)

// safetyVetoThreshold and safetyVetoCap implement the near-veto: a draft
// with safety below the threshold can never score above the cap, so it can
// never clear an auto-send threshold of 0.8.
const (
	safetyVetoThreshold = 0.5
	safetyVetoCap       = 0.4
)

// defaultTargetWords is used when a voice profile carries no average length.
const defaultTargetWords = 120

// Weights are the relative contributions of each sub-score to the overall
// confidence value. They must sum to 1.
type Weights struct {
	Specificity float64 `json:"specificity" validate:"gte=0,lte=1"`
	VoiceMatch  float64 `json:"voice_match" validate:"gte=0,lte=1"`
	Safety      float64 `json:"safety" validate:"gte=0,lte=1"`
	Length      float64 `json:"length" validate:"gte=0,lte=1"`
}

// DefaultWeights returns the tuned default weighting.
func DefaultWeights() Weights {
	return Weights{Specificity: 0.35, VoiceMatch: 0.25, Safety: 0.25, Length: 0.15}
}

// Validate checks that the weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"specificity": w.Specificity,
		"voice_match": w.VoiceMatch,
		"safety":      w.Safety,
		"length":      w.Length,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight %s out of range: %v", name, v)
		}
	}
	sum := w.Specificity + w.VoiceMatch + w.Safety + w.Length
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("confidence weights must sum to 1, got %v", sum)
	}
	return nil
}

// riskyPhrases are substrings that flag a draft as legally or reputationally
// unsafe to send without review. Matching is case-insensitive; stems catch
// inflections (pregnan- for pregnant/pregnancy).
var riskyPhrases = []string{
	"your age",
	"too old",
	"too young",
	"pregnan",
	"disabilit",
	"religio",
	"ethnic",
	"nationality",
	"visa status",
	"marital",
	"health condition",
	"medical",
	"lawsuit",
	"legal action",
	"we guarantee",
	"unprofessional",
	"incompetent",
	"waste of time",
}

// stopwords excluded when deriving role-reference tokens from a title.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "senior": true, "junior": true,
	"staff": true, "lead": true, "of": true,
}

// Evaluator scores drafts. It is deterministic: identical inputs always
// produce identical breakdowns.
type Evaluator struct {
	weights Weights
}

// NewEvaluator creates an Evaluator with validated weights.
func NewEvaluator(weights Weights) (*Evaluator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{weights: weights}, nil
}

// Evaluate scores a draft against the candidate and the company voice
// profile. Every sub-score lands in [0,1].
func (e *Evaluator) Evaluate(draft string, candidate *types.Candidate, role *types.Role, profile *types.VoiceProfile) (types.ConfidenceBreakdown, error) {
	if strings.TrimSpace(draft) == "" {
		return types.ConfidenceBreakdown{}, &EvaluationError{Message: "draft text is empty"}
	}
	if candidate == nil {
		return types.ConfidenceBreakdown{}, &EvaluationError{Message: "candidate is required"}
	}
	if profile == nil {
		return types.ConfidenceBreakdown{}, &EvaluationError{Message: "voice profile is required"}
	}

	b := types.ConfidenceBreakdown{
		SchemaVersion: types.BreakdownSchemaVersion,
		Specificity:   specificityScore(draft, candidate, role),
		VoiceMatch:    voiceMatchScore(draft, profile),
		Safety:        safetyScore(draft),
		Length:        lengthScore(draft, profile),
	}
	b.Explanation = explain(b)
	return b, nil
}

// Overall combines a breakdown into the confidence score. Safety acts as a
// near-veto: below the threshold the result is capped regardless of how well
// the other dimensions scored.
func (e *Evaluator) Overall(b types.ConfidenceBreakdown) float64 {
	score := e.weights.Specificity*b.Specificity +
		e.weights.VoiceMatch*b.VoiceMatch +
		e.weights.Safety*b.Safety +
		e.weights.Length*b.Length
	if b.Safety < safetyVetoThreshold && score > safetyVetoCap {
		score = safetyVetoCap
	}
	return clamp01(score)
}

// specificityScore checks whether the draft references the candidate's role
// or a concrete skill. Zero references is a hard failure (score well under
// the 0.2 ceiling) so a generic form letter cannot auto-send.
func specificityScore(draft string, candidate *types.Candidate, role *types.Role) float64 {
	lower := strings.ToLower(draft)

	tokens := make(map[string]bool)
	if role != nil {
		for _, word := range strings.Fields(strings.ToLower(role.Title)) {
			if len(word) > 2 && !stopwords[word] {
				tokens[word] = true
			}
		}
		for _, req := range role.Requirements {
			if req = strings.ToLower(strings.TrimSpace(req)); req != "" {
				tokens[req] = true
			}
		}
	}
	for _, skill := range candidate.Skills {
		if skill = strings.ToLower(strings.TrimSpace(skill)); skill != "" {
			tokens[skill] = true
		}
	}

	hits := 0
	for token := range tokens {
		if strings.Contains(lower, token) {
			hits++
		}
	}

	if hits == 0 {
		return 0.1
	}
	return clamp01(0.55 + 0.15*float64(hits))
}

// voiceMatchScore compares the draft's register against the calibrated
// profile: sign-off presence, favored and avoided phrases, tone markers.
func voiceMatchScore(draft string, profile *types.VoiceProfile) float64 {
	lower := strings.ToLower(draft)
	score := 0.6

	if signOff := strings.ToLower(strings.TrimSpace(profile.SignOff)); signOff != "" {
		if strings.Contains(lower, signOff) {
			score += 0.2
		} else {
			score -= 0.1
		}
	}

	favored := 0.0
	for _, phrase := range profile.FavoredPhrases {
		if phrase = strings.ToLower(strings.TrimSpace(phrase)); phrase != "" && strings.Contains(lower, phrase) {
			favored += 0.05
		}
	}
	score += math.Min(favored, 0.1)

	for _, phrase := range profile.AvoidedPhrases {
		if phrase = strings.ToLower(strings.TrimSpace(phrase)); phrase != "" && strings.Contains(lower, phrase) {
			score -= 0.2
		}
	}

	switch profile.ToneClass {
	case types.ToneProfessional:
		if strings.Contains(lower, "hey ") || strings.Contains(draft, "!!") {
			score -= 0.2
		}
	case types.ToneCasual:
		if strings.Contains(lower, "to whom it may concern") || strings.Contains(lower, "dear sir") {
			score -= 0.2
		}
	}

	return clamp01(score)
}

// safetyScore scans for phrases that make a message risky to send
// unreviewed. Each distinct hit costs 0.3.
func safetyScore(draft string) float64 {
	lower := strings.ToLower(draft)
	score := 1.0
	for _, phrase := range riskyPhrases {
		if strings.Contains(lower, phrase) {
			score -= 0.3
		}
	}
	return clamp01(score)
}

// lengthScore compares word count against the profile's average length,
// decaying linearly with relative deviation.
func lengthScore(draft string, profile *types.VoiceProfile) float64 {
	target := profile.AvgLengthWords
	if target <= 0 {
		target = defaultTargetWords
	}
	words := len(strings.Fields(draft))
	deviation := math.Abs(float64(words-target)) / float64(target)
	return clamp01(1.0 - deviation)
}

// explain names the weakest dimension so reviewers see why a draft was held.
func explain(b types.ConfidenceBreakdown) string {
	// fixed order so ties always resolve to the same dimension
	lowest := "specificity"
	value := b.Specificity
	for _, dim := range []struct {
		name  string
		value float64
	}{
		{"voice match", b.VoiceMatch},
		{"safety", b.Safety},
		{"length", b.Length},
	} {
		if dim.value < value {
			lowest, value = dim.name, dim.value
		}
	}

	if b.Safety < safetyVetoThreshold {
		return fmt.Sprintf("safety %.2f is below the send threshold; held for review", b.Safety)
	}
	if b.Specificity <= 0.2 {
		return "draft does not reference the candidate's role or a concrete skill"
	}
	return fmt.Sprintf("weakest dimension: %s (%.2f)", lowest, value)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
