package scope

import (
	"fmt"
	"math"
)

// Safety caps on reported scope size. Counts beyond these are clamped
// and recorded as gaps rather than silently trusted.
const (
	MaxTables = 50
	MaxFiles  = 100

	// DependencyDepth is a fixed assumption, never derived from the
	// actual dependency graph.
	DependencyDepth = 2
)

// ScopeBoundary is the capped, quantified summary of what a feature
// touches, plus confidence and complexity. Built by Builder; mutated in
// place only by the approval workflow.
type ScopeBoundary struct {
	TableCount          int       `json:"table_count"`
	FileCount           int       `json:"file_count"`
	ServiceCount        int       `json:"service_count"`
	DependencyDepth     int       `json:"dependency_depth"`
	EstimatedComplexity float64   `json:"estimated_complexity"`
	Confidence          float64   `json:"confidence"`
	Gaps                []string  `json:"gaps"`
	Entities            *Entities `json:"entities,omitempty"`
	UserApproved        bool      `json:"user_approved"`
	ApprovalTimestamp   string    `json:"approval_timestamp,omitempty"`
	ApprovalMethod      string    `json:"approval_method,omitempty"`
	ContextID           string    `json:"context_id,omitempty"`
}

// Builder constructs scope boundaries from entities and a confidence
// score. Pure and total.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build applies the hard caps, computes estimated complexity on a 0-100
// scale, and records human-readable gaps: cap overflows always, and
// per-category absence gaps when confidence is below the clarification
// threshold.
func (b *Builder) Build(e *Entities, confidence float64) *ScopeBoundary {
	boundary := &ScopeBoundary{
		DependencyDepth: DependencyDepth,
		Confidence:      clamp01(confidence),
		Gaps:            []string{},
		Entities:        e,
	}

	tables := len(e.Tables)
	if tables > MaxTables {
		boundary.Gaps = append(boundary.Gaps, fmt.Sprintf(
			"Table count %d exceeds the safe limit of %d — counting only the first %d",
			tables, MaxTables, MaxTables))
		tables = MaxTables
	}
	boundary.TableCount = tables

	files := len(e.Files)
	if files > MaxFiles {
		boundary.Gaps = append(boundary.Gaps, fmt.Sprintf(
			"File count %d exceeds the safe limit of %d — counting only the first %d",
			files, MaxFiles, MaxFiles))
		files = MaxFiles
	}
	boundary.FileCount = files

	boundary.ServiceCount = len(e.Services)

	if boundary.Confidence < ConfidenceThreshold {
		if tables == 0 {
			boundary.Gaps = append(boundary.Gaps,
				"No database tables identified — which tables does this feature touch?")
		}
		if files == 0 {
			boundary.Gaps = append(boundary.Gaps,
				"No code files identified — which files will change?")
		}
		if len(e.Services) == 0 && len(e.Dependencies) == 0 {
			boundary.Gaps = append(boundary.Gaps,
				"No external services or technical dependencies identified — are there any?")
		}
	}

	boundary.EstimatedComplexity = complexity(tables, files, len(e.Services), len(e.Dependencies))

	return boundary
}

// complexity maps entity counts onto a 0-100 scale. Each term saturates:
// 20 tables, 30 files, 5 services, 6 dependencies. Weights sum to 100.
func complexity(tables, files, services, deps int) float64 {
	c := 30.0*math.Min(float64(tables)/20.0, 1.0) +
		35.0*math.Min(float64(files)/30.0, 1.0) +
		20.0*math.Min(float64(services)/5.0, 1.0) +
		15.0*math.Min(float64(deps)/6.0, 1.0)
	return math.Min(math.Max(c, 0.0), 100.0)
}
