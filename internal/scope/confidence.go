package scope

import (
	"math"
	"regexp"
)

// ConfidenceThreshold is the minimum confidence at which a scope is
// considered well-specified enough to skip clarification. The approval
// gate applies its own, stricter threshold on top of this one.
const ConfidenceThreshold = 0.70

// vagueKeywords signal hedged, under-specified language. Order matters
// only for reporting; each keyword is checked independently on word
// boundaries.
var vagueKeywords = []string{
	"some", "few", "maybe", "possibly", "probably", "might", "could",
	"several", "various", "certain", "a few",
}

var vagueRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(vagueKeywords))
	for i, kw := range vagueKeywords {
		res[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return res
}()

// VagueKeywordsIn returns the distinct vague keywords present in text,
// in the fixed keyword-list order.
func VagueKeywordsIn(text string) []string {
	var found []string
	for i, re := range vagueRes {
		if re.MatchString(text) {
			found = append(found, vagueKeywords[i])
		}
	}
	return found
}

// Scorer turns extracted entities plus the original text into a single
// confidence value in [0, 1].
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the weighted confidence. Out of 100 raw points: tables
// contribute up to 40 (saturating at 3), files up to 30 (saturating at 2),
// services up to 20 (saturating at 2), dependencies up to 10 (saturating
// at 2). Vague language penalizes the raw score before the final clamp:
// a non-zero raw score is clamped into [0.35, 0.60], and a zero raw score
// with vague language present is forced to exactly 0.35 — distinguishing
// "attempted but vague" from a true 0.0.
func (s *Scorer) Score(e *Entities, text string) float64 {
	raw := 0.0
	raw += math.Min(float64(len(e.Tables)), 3) * (40.0 / 3.0)
	raw += math.Min(float64(len(e.Files)), 2) * 15.0
	raw += math.Min(float64(len(e.Services)), 2) * 10.0
	raw += math.Min(float64(len(e.Dependencies)), 2) * 5.0

	score := raw / 100.0

	if len(VagueKeywordsIn(text)) > 0 {
		if raw > 0 {
			score = math.Min(math.Max(score, 0.35), 0.60)
		} else {
			score = 0.35
		}
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0.0), 1.0)
}
