package scope

import (
	"fmt"
	"strings"
)

// ValidationResult is the verdict of rule-based boundary validation.
// Produced fresh on every call; never persisted. Faults are data, not
// errors — callers branch on IsValid / RequiresClarification.
type ValidationResult struct {
	IsValid               bool     `json:"is_valid"`
	RequiresClarification bool     `json:"requires_clarification"`
	ConfidenceScore       float64  `json:"confidence_score"`
	ValidationErrors      []string `json:"validation_errors"`
	Warnings              []string `json:"warnings"`
	MissingElements       []string `json:"missing_elements"`
}

// Validator runs independent rule checks over a scope boundary.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every rule in fixed order. Rules fire independently — no
// short-circuiting — and any accumulated error forces the boundary
// invalid and requiring clarification, even when the error's own rule
// did not mark clarification itself.
func (v *Validator) Validate(b *ScopeBoundary) ValidationResult {
	result := ValidationResult{
		IsValid:          true,
		ConfidenceScore:  b.Confidence,
		ValidationErrors: []string{},
		Warnings:         []string{},
		MissingElements:  []string{},
	}

	// Rule 1: low confidence blocks estimation outright.
	if b.Confidence < ConfidenceThreshold {
		result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf(
			"Confidence %.2f is below the %.2f threshold — scope is too ambiguous to estimate",
			b.Confidence, ConfidenceThreshold))
		result.RequiresClarification = true
	}

	// Rule 2: missing tables is survivable (pure-code features exist),
	// so it only warns.
	if b.TableCount == 0 {
		result.Warnings = append(result.Warnings,
			"No database tables identified — data model impact is unknown")
		result.MissingElements = append(result.MissingElements, "tables")
	}

	// Rule 3: missing files is not — a change that touches no files
	// cannot be localized.
	if b.FileCount == 0 {
		result.ValidationErrors = append(result.ValidationErrors,
			"No code files identified — the change cannot be localized")
		result.MissingElements = append(result.MissingElements, "files")
	}

	// Rule 4: re-check the caps the builder already clamps. Intentional
	// duplication: the validator must hold even for boundaries that did
	// not come from the builder.
	if b.TableCount > MaxTables {
		result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf(
			"Table count %d exceeds the maximum of %d", b.TableCount, MaxTables))
	}
	if b.FileCount > MaxFiles {
		result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf(
			"File count %d exceeds the maximum of %d", b.FileCount, MaxFiles))
	}

	// Rule 5: complexity advisories.
	if b.EstimatedComplexity > 85 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Estimated complexity %.0f/100 is very high — consider phasing this feature",
			b.EstimatedComplexity))
	} else if b.EstimatedComplexity > 70 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Estimated complexity %.0f/100 is high — review the scope before committing",
			b.EstimatedComplexity))
	}

	// Rule 6: both dimensions at their cap means enterprise scale.
	if b.TableCount >= MaxTables && b.FileCount >= MaxFiles {
		result.Warnings = append(result.Warnings,
			"Scope is at large-scale/enterprise size in both tables and files — split it into phases")
	}

	// Rule 7: a true zero means nothing was inferred at all. Independent
	// of rule 1.
	if b.Confidence == 0.0 {
		result.ValidationErrors = append(result.ValidationErrors,
			"Empty scope — nothing could be inferred from the description")
		result.RequiresClarification = true
	}

	// Rule 8: triage the builder's gaps. Cap-overflow gaps ("exceeds")
	// are already covered by rule 4; absence-style gaps force
	// clarification; anything else surfaces as a warning.
	for _, gap := range b.Gaps {
		lower := strings.ToLower(gap)
		switch {
		case strings.Contains(lower, "exceeds"):
			// covered by rule 4
		case strings.Contains(lower, "no") ||
			strings.Contains(lower, "missing") ||
			strings.Contains(lower, "not"):
			result.RequiresClarification = true
		default:
			result.Warnings = append(result.Warnings, gap)
		}
	}

	// Final verdict.
	if len(result.ValidationErrors) > 0 {
		result.IsValid = false
		result.RequiresClarification = true
	}

	return result
}
