package voice

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxLearnedPhrases = 10

// RecordEdit folds a reviewer's edit back into the company's profile:
// sentences the reviewer cut join the avoided list, sentences they wrote in
// join the favored list, and the target length drifts toward the edited
// length. No-ops when the company has no profile or the edit changed
// nothing.
func (e *Extractor) RecordEdit(ctx context.Context, companyID uuid.UUID, originalDraft, editedBody string) error {
	removed, added := sentenceDiff(originalDraft, editedBody)
	editedWords := len(strings.Fields(editedBody))
	if len(removed) == 0 && len(added) == 0 {
		return nil
	}

	mu := e.companyLock(companyID)
	mu.Lock()
	defer mu.Unlock()

	profile, err := e.store.GetVoiceProfile(ctx, companyID)
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}

	profile.AvoidedPhrases = dedupeCapped(append(profile.AvoidedPhrases, removed...), maxLearnedPhrases)
	profile.FavoredPhrases = dedupeCapped(append(profile.FavoredPhrases, added...), maxLearnedPhrases)
	// drift a quarter of the way toward what the reviewer actually sent
	profile.AvgLengthWords += (editedWords - profile.AvgLengthWords) / 4
	profile.Version++
	profile.UpdatedAt = time.Now().UTC()

	if err := e.store.SaveVoiceProfile(ctx, companyID, profile); err != nil {
		return err
	}
	e.logger.Info("voice profile updated from edit",
		zap.String("company_id", companyID.String()),
		zap.Int("removed_phrases", len(removed)),
		zap.Int("added_phrases", len(added)),
		zap.Int("version", profile.Version))
	return nil
}

// sentenceDiff returns the sentences present only in the original and those
// present only in the edit. Short fragments are ignored; they are usually
// greetings or punctuation noise rather than phrasing choices.
func sentenceDiff(original, edited string) (removed, added []string) {
	origSet := sentenceSet(original)
	editSet := sentenceSet(edited)

	for _, s := range splitSentences(original) {
		if !editSet[strings.ToLower(s)] {
			removed = append(removed, s)
		}
	}
	for _, s := range splitSentences(edited) {
		if !origSet[strings.ToLower(s)] {
			added = append(added, s)
		}
	}
	return removed, added
}

func sentenceSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, s := range splitSentences(text) {
		set[strings.ToLower(s)] = true
	}
	return set
}

func splitSentences(text string) []string {
	var out []string
	for _, raw := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		s := strings.TrimSpace(raw)
		if len(strings.Fields(s)) >= 4 {
			out = append(out, s)
		}
	}
	return out
}
