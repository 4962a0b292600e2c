package talentbank

import (
	"strings"
	"unicode"

	"github.com/candorhq/candor/internal/types"
)

// Similarity scores how well a dormant candidate fits an open role, in
// [0,1]. Implementations must be deterministic: the same candidate and role
// always produce the same score.
type Similarity func(candidate *types.Candidate, role *types.Role) float64

// skillAliases folds common spelling variants onto one canonical token.
var skillAliases = map[string]string{
	"golang":     "go",
	"js":         "javascript",
	"ts":         "typescript",
	"node":       "nodejs",
	"node.js":    "nodejs",
	"react.js":   "react",
	"reactjs":    "react",
	"postgresql": "postgres",
	"k8s":        "kubernetes",
}

// TokenOverlap is the default similarity: the fraction of the role's
// requirement tokens covered by the candidate's skills, with the role title
// counted as extra requirement tokens.
func TokenOverlap(candidate *types.Candidate, role *types.Role) float64 {
	want := make(map[string]bool)
	for _, req := range role.Requirements {
		for _, tok := range tokenize(req) {
			want[tok] = true
		}
	}
	for _, tok := range tokenize(role.Title) {
		want[tok] = true
	}
	if len(want) == 0 {
		return 0
	}

	have := make(map[string]bool)
	for _, skill := range candidate.Skills {
		for _, tok := range tokenize(skill) {
			have[tok] = true
		}
	}

	var hits int
	for tok := range want {
		if have[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}

var similarityStopwords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "senior": true,
	"junior": true, "staff": true, "lead": true, "engineer": true,
	"developer": true, "experience": true, "years": true, "strong": true,
	"knowledge": true, "ability": true, "skills": true, "working": true,
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '+' && r != '#'
	})
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if alias, ok := skillAliases[f]; ok {
			f = alias
		}
		if len(f) <= 2 && f != "go" && f != "c#" && f != "c++" {
			continue
		}
		if similarityStopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
