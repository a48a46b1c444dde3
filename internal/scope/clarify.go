package scope

import (
	"fmt"
	"strings"
)

// MaxClarificationRounds bounds how many follow-up rounds a single
// negotiation may run before the pipeline gives up and escalates to the
// approval gate with whatever scope it has.
const MaxClarificationRounds = 2

// ClarificationSession is the per-negotiation state of the clarification
// loop. One session is owned by one negotiation and discarded when the
// negotiation ends; it is never shared across unrelated requests.
type ClarificationSession struct {
	CurrentRound        int     `json:"current_round"`
	MaxRounds           int     `json:"max_rounds"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// NewClarificationSession creates a fresh session at round zero.
func NewClarificationSession() *ClarificationSession {
	return &ClarificationSession{
		MaxRounds:           MaxClarificationRounds,
		ConfidenceThreshold: ConfidenceThreshold,
	}
}

// NextRound advances the round counter after an answer is processed.
func (s *ClarificationSession) NextRound() {
	s.CurrentRound++
}

// ParsedResponse is the result of reparsing a user's clarification
// answer.
type ParsedResponse struct {
	Entities      *Entities `json:"entities"`
	Confidence    float64   `json:"confidence"`
	IsVague       bool      `json:"is_vague"`
	VagueKeywords []string  `json:"vague_keywords,omitempty"`
}

// vagueResponsePenalty is subtracted per distinct vague keyword when
// reparsing a clarification answer, on top of the scorer's own penalty.
// Clarification replies are held to a harder standard than the initial
// description: hedging in a direct answer compounds.
const vagueResponsePenalty = 0.15

// Clarifier decides whether to ask follow-up questions, renders the
// prompt, and reparses replies. It owns one session per negotiation.
type Clarifier struct {
	Session *ClarificationSession

	extractor *Extractor
	scorer    *Scorer
}

// NewClarifier creates a Clarifier with a fresh session.
func NewClarifier() *Clarifier {
	return &Clarifier{
		Session:   NewClarificationSession(),
		extractor: NewExtractor(),
		scorer:    NewScorer(),
	}
}

// ShouldClarify reports whether follow-up questions are warranted:
// never when confidence meets the threshold; otherwise when the boundary
// is invalid or elements are missing.
func (c *Clarifier) ShouldClarify(v ValidationResult) bool {
	if v.ConfidenceScore >= c.Session.ConfidenceThreshold {
		return false
	}
	if !v.IsValid {
		return true
	}
	return len(v.MissingElements) > 0
}

// Prompt renders the clarification prompt: a confidence header, the
// supplied questions numbered from 1, and fixed hint lines for each
// category listed in MissingElements.
func (c *Clarifier) Prompt(v ValidationResult, questions []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Scope confidence is %.0f%% — clarification is needed before estimation.\n\n",
		v.ConfidenceScore*100)

	for i, q := range questions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}

	var hints []string
	for _, missing := range v.MissingElements {
		switch missing {
		case "tables":
			hints = append(hints, "- Tables: list specific table names (e.g. Users, Orders)")
		case "files":
			hints = append(hints, "- Files: include extensions, e.g. UserService.cs")
		case "services":
			hints = append(hints, "- Services: specify service names, e.g. Azure AD, SendGrid")
		}
	}
	if len(hints) > 0 {
		sb.WriteString("\nHow to answer:\n")
		sb.WriteString(strings.Join(hints, "\n"))
		sb.WriteString("\n")
	}

	return sb.String()
}

// ParseResponse re-runs extraction and scoring on a clarification
// answer, then applies the response-level vague penalty: 0.15 per
// distinct vague keyword, floored at zero. The answer is vague when any
// vague keyword is present, when nothing was extracted, or when the
// resulting confidence is still below the threshold.
func (c *Clarifier) ParseResponse(text string) ParsedResponse {
	entities := c.extractor.Extract(text)
	confidence := c.scorer.Score(entities, text)

	vague := VagueKeywordsIn(text)
	confidence -= float64(len(vague)) * vagueResponsePenalty
	confidence = clamp01(confidence)

	return ParsedResponse{
		Entities:      entities,
		Confidence:    confidence,
		IsVague:       len(vague) > 0 || entities.IsEmpty() || confidence < c.Session.ConfidenceThreshold,
		VagueKeywords: vague,
	}
}

// ShouldStop reports whether the clarification loop should end: the
// confidence threshold is met, the boundary validated, or the round
// budget is spent — checked in that order.
func (c *Clarifier) ShouldStop(v ValidationResult) bool {
	if v.ConfidenceScore >= c.Session.ConfidenceThreshold {
		return true
	}
	if v.IsValid {
		return true
	}
	return c.Session.CurrentRound >= c.Session.MaxRounds
}

// CanContinue reports whether another round is allowed.
func (c *Clarifier) CanContinue() bool {
	return c.Session.CurrentRound < c.Session.MaxRounds
}
