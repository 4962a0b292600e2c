package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/candorhq/candor/internal/llm"
	"github.com/candorhq/candor/internal/prompts"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultAvgLengthWords is used until real samples teach us better.
const defaultAvgLengthWords = 120

// Store is the persistence surface the voice package needs. Profiles are
// always written whole; there are no partial updates.
type Store interface {
	GetVoiceProfile(ctx context.Context, companyID uuid.UUID) (*types.VoiceProfile, error)
	SaveVoiceProfile(ctx context.Context, companyID uuid.UUID, profile *types.VoiceProfile) error
}

// Extractor builds a company's voice profile from sample emails. The
// measurable parts of the profile (length, sign-off, sample count) are
// computed deterministically; the model only contributes phrase and habit
// lists it can quote evidence for.
type Extractor struct {
	store  Store
	llm    llm.Client
	logger *zap.Logger

	// one extraction or feedback write per company at a time
	locks sync.Map
}

func NewExtractor(store Store, client llm.Client, logger *zap.Logger) *Extractor {
	return &Extractor{store: store, llm: client, logger: logger}
}

func (e *Extractor) companyLock(companyID uuid.UUID) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(companyID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

type extractedHabits struct {
	FavoredPhrases   []string `json:"favored_phrases"`
	AvoidedPhrases   []string `json:"avoided_phrases"`
	StructuralHabits []string `json:"structural_habits"`
}

// Extract calibrates the company's profile from the given samples and saves
// it, replacing any existing profile. With no samples it produces a baseline
// profile for the chosen tone. The profile version always increments.
func (e *Extractor) Extract(ctx context.Context, companyID uuid.UUID, tone types.ToneClass, samples []string) (*types.VoiceProfile, error) {
	if !tone.Valid() {
		return nil, &ExtractionError{Message: fmt.Sprintf("unknown tone class %q", tone)}
	}

	mu := e.companyLock(companyID)
	mu.Lock()
	defer mu.Unlock()

	prior, err := e.store.GetVoiceProfile(ctx, companyID)
	if err != nil {
		return nil, err
	}
	version := 1
	if prior != nil {
		version = prior.Version + 1
	}

	profile := &types.VoiceProfile{
		SchemaVersion:  types.VoiceProfileSchemaVersion,
		ToneClass:      tone,
		SignOff:        baselineSignOff(tone),
		AvgLengthWords: defaultAvgLengthWords,
		SampleCount:    len(samples),
		Version:        version,
		UpdatedAt:      time.Now().UTC(),
	}

	if len(samples) > 0 {
		profile.AvgLengthWords = avgWordCount(samples)
		if signOff := detectSignOff(samples); signOff != "" {
			profile.SignOff = signOff
		}

		habits, err := e.extractHabits(ctx, tone, samples)
		if err != nil {
			return nil, err
		}
		profile.FavoredPhrases = habits.FavoredPhrases
		profile.AvoidedPhrases = habits.AvoidedPhrases
		profile.StructuralHabits = habits.StructuralHabits
	}

	if err := e.store.SaveVoiceProfile(ctx, companyID, profile); err != nil {
		return nil, err
	}
	e.logger.Info("voice profile calibrated",
		zap.String("company_id", companyID.String()),
		zap.Int("samples", len(samples)),
		zap.Int("version", profile.Version))
	return profile, nil
}

func (e *Extractor) extractHabits(ctx context.Context, tone types.ToneClass, samples []string) (*extractedHabits, error) {
	prompt := prompts.Format(prompts.MustGet("voice.json", "extract-voice-profile"), map[string]string{
		"ToneClass": string(tone),
		"Samples":   numberSamples(samples),
	})

	raw, err := e.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &ExtractionError{Message: "habit extraction failed", Cause: err}
	}
	var habits extractedHabits
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &habits); err != nil {
		return nil, &ExtractionError{Message: "model returned malformed habits", Cause: err}
	}
	return &habits, nil
}

func numberSamples(samples []string) string {
	var b strings.Builder
	for i, s := range samples {
		fmt.Fprintf(&b, "--- Sample %d ---\n%s\n", i+1, strings.TrimSpace(s))
	}
	return b.String()
}

func avgWordCount(samples []string) int {
	var total int
	for _, s := range samples {
		total += len(strings.Fields(s))
	}
	return total / len(samples)
}

// detectSignOff finds the most common short closing line across samples.
// Ties break lexicographically so repeated extraction of the same samples
// lands on the same sign-off.
func detectSignOff(samples []string) string {
	counts := make(map[string]int)
	for _, s := range samples {
		lines := strings.Split(strings.TrimSpace(s), "\n")
		// the closing line is usually the last line or the one above a
		// bare name
		for i := len(lines) - 1; i >= 0 && i >= len(lines)-3; i-- {
			line := strings.TrimSpace(lines[i])
			if line == "" {
				continue
			}
			if looksLikeSignOff(line) {
				counts[line]++
				break
			}
		}
	}

	best := ""
	bestCount := 0
	for line, n := range counts {
		if n > bestCount || (n == bestCount && line < best) {
			best = line
			bestCount = n
		}
	}
	return best
}

func looksLikeSignOff(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	return strings.HasSuffix(line, ",") || strings.HasSuffix(line, "!") ||
		strings.EqualFold(words[0], "best") || strings.EqualFold(words[0], "thanks") ||
		strings.EqualFold(words[0], "regards") || strings.EqualFold(words[0], "cheers") ||
		strings.EqualFold(words[0], "sincerely") || strings.EqualFold(words[0], "warmly")
}

func baselineSignOff(tone types.ToneClass) string {
	switch tone {
	case types.ToneCasual:
		return "Thanks!"
	case types.ToneWarmDirect:
		return "Best,"
	default:
		return "Best regards,"
	}
}

func dedupeCapped(items []string, max int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}
