package scope

import (
	"strings"
	"testing"
)

// --- Session ---

func TestNewClarificationSession_Defaults(t *testing.T) {
	s := NewClarificationSession()
	if s.CurrentRound != 0 {
		t.Errorf("CurrentRound = %d, want 0", s.CurrentRound)
	}
	if s.MaxRounds != MaxClarificationRounds {
		t.Errorf("MaxRounds = %d, want %d", s.MaxRounds, MaxClarificationRounds)
	}
	if s.ConfidenceThreshold != ConfidenceThreshold {
		t.Errorf("ConfidenceThreshold = %v, want %v", s.ConfidenceThreshold, ConfidenceThreshold)
	}
}

func TestSession_NextRound(t *testing.T) {
	s := NewClarificationSession()
	s.NextRound()
	s.NextRound()
	if s.CurrentRound != 2 {
		t.Errorf("CurrentRound = %d, want 2", s.CurrentRound)
	}
}

// --- ShouldClarify ---

func TestShouldClarify_HighConfidenceNeverClarifies(t *testing.T) {
	c := NewClarifier()
	v := ValidationResult{
		IsValid:         false, // even invalid
		ConfidenceScore: 0.90,
		MissingElements: []string{"tables"},
	}
	if c.ShouldClarify(v) {
		t.Error("ShouldClarify = true at confidence 0.90, want false")
	}
}

func TestShouldClarify_InvalidBelowThreshold(t *testing.T) {
	c := NewClarifier()
	v := ValidationResult{IsValid: false, ConfidenceScore: 0.40}
	if !c.ShouldClarify(v) {
		t.Error("ShouldClarify = false for invalid low-confidence result, want true")
	}
}

func TestShouldClarify_ValidButMissingElements(t *testing.T) {
	c := NewClarifier()
	v := ValidationResult{
		IsValid:         true,
		ConfidenceScore: 0.60,
		MissingElements: []string{"tables"},
	}
	if !c.ShouldClarify(v) {
		t.Error("ShouldClarify = false with missing elements, want true")
	}
}

func TestShouldClarify_ValidCompleteBelowThreshold(t *testing.T) {
	c := NewClarifier()
	v := ValidationResult{IsValid: true, ConfidenceScore: 0.60}
	if c.ShouldClarify(v) {
		t.Error("ShouldClarify = true for valid complete result, want false")
	}
}

// --- Prompt ---

func TestPrompt_HeaderAndNumberedQuestions(t *testing.T) {
	c := NewClarifier()
	v := ValidationResult{ConfidenceScore: 0.45}
	got := c.Prompt(v, []string{"Which tables?", "Which files?"})

	if !strings.Contains(got, "Scope confidence is 45%") {
		t.Errorf("prompt missing confidence header:\n%s", got)
	}
	if !strings.Contains(got, "1. Which tables?") || !strings.Contains(got, "2. Which files?") {
		t.Errorf("prompt missing numbered questions:\n%s", got)
	}
}

func TestPrompt_HintsForMissingElements(t *testing.T) {
	c := NewClarifier()
	v := ValidationResult{
		ConfidenceScore: 0.10,
		MissingElements: []string{"tables", "files"},
	}
	got := c.Prompt(v, []string{"What does this feature touch?"})

	if !strings.Contains(got, "How to answer:") {
		t.Errorf("prompt missing hints block:\n%s", got)
	}
	if !strings.Contains(got, "- Tables:") {
		t.Errorf("prompt missing tables hint:\n%s", got)
	}
	if !strings.Contains(got, "- Files:") {
		t.Errorf("prompt missing files hint:\n%s", got)
	}
	if strings.Contains(got, "- Services:") {
		t.Errorf("prompt has services hint without missing element:\n%s", got)
	}
}

func TestPrompt_NoHintsBlockWhenNothingMissing(t *testing.T) {
	c := NewClarifier()
	got := c.Prompt(ValidationResult{ConfidenceScore: 0.50}, []string{"Anything else?"})
	if strings.Contains(got, "How to answer:") {
		t.Errorf("unexpected hints block:\n%s", got)
	}
}

// --- ParseResponse ---

func TestParseResponse_PreciseAnswer(t *testing.T) {
	c := NewClarifier()
	got := c.ParseResponse("Tables: Users, Orders, Products\nFiles: OrderService.cs, CartService.cs")
	if got.IsVague {
		t.Errorf("IsVague = true for precise answer (confidence %v)", got.Confidence)
	}
	if got.Confidence < c.Session.ConfidenceThreshold {
		t.Errorf("Confidence = %v, want >= %v", got.Confidence, c.Session.ConfidenceThreshold)
	}
	if len(got.Entities.Tables) != 3 {
		t.Errorf("Tables = %v, want 3", got.Entities.Tables)
	}
}

func TestParseResponse_TwoVagueKeywordsNoEntities(t *testing.T) {
	c := NewClarifier()
	got := c.ParseResponse("maybe add some things")

	if !got.IsVague {
		t.Error("IsVague = false, want true")
	}
	if len(got.VagueKeywords) != 2 {
		t.Errorf("VagueKeywords = %v, want 2 distinct", got.VagueKeywords)
	}
	// Floor 0.35 minus two response penalties of 0.15.
	if !almostEqual(got.Confidence, 0.05) {
		t.Errorf("Confidence = %v, want 0.05", got.Confidence)
	}
	if got.Confidence > 0.35 {
		t.Errorf("Confidence = %v, want <= 0.35", got.Confidence)
	}
}

func TestParseResponse_PenaltyFloorsAtZero(t *testing.T) {
	c := NewClarifier()
	got := c.ParseResponse("maybe, possibly, probably, might, could")
	if got.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", got.Confidence)
	}
	if !got.IsVague {
		t.Error("IsVague = false, want true")
	}
}

func TestParseResponse_EmptyAnswerIsVague(t *testing.T) {
	c := NewClarifier()
	got := c.ParseResponse("")
	if !got.IsVague {
		t.Error("IsVague = false for empty answer, want true")
	}
	if got.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", got.Confidence)
	}
}

// --- ShouldStop / CanContinue ---

func TestShouldStop_ThresholdMet(t *testing.T) {
	c := NewClarifier()
	if !c.ShouldStop(ValidationResult{ConfidenceScore: 0.70}) {
		t.Error("ShouldStop = false at threshold, want true")
	}
}

func TestShouldStop_ValidResult(t *testing.T) {
	c := NewClarifier()
	if !c.ShouldStop(ValidationResult{IsValid: true, ConfidenceScore: 0.50}) {
		t.Error("ShouldStop = false for valid result, want true")
	}
}

func TestShouldStop_RoundBudgetSpent(t *testing.T) {
	c := NewClarifier()
	c.Session.NextRound()
	c.Session.NextRound()
	if !c.ShouldStop(ValidationResult{ConfidenceScore: 0.20}) {
		t.Error("ShouldStop = false after max rounds, want true")
	}
}

func TestShouldStop_ContinuesWhileBudgetRemains(t *testing.T) {
	c := NewClarifier()
	c.Session.NextRound()
	if c.ShouldStop(ValidationResult{ConfidenceScore: 0.20}) {
		t.Error("ShouldStop = true with one round left, want false")
	}
}

func TestCanContinue(t *testing.T) {
	c := NewClarifier()
	if !c.CanContinue() {
		t.Error("CanContinue = false at round 0, want true")
	}
	c.Session.NextRound()
	c.Session.NextRound()
	if c.CanContinue() {
		t.Error("CanContinue = true at max rounds, want false")
	}
}
