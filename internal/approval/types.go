// Package approval implements the approval gate: the final checkpoint
// between scope inference and effort estimation. It decides whether a
// human must confirm the inferred scope, persists the negotiation across
// process boundaries, and unblocks the estimator once approval arrives.
package approval

import "scopegate/internal/scope"

// Status is the lifecycle state of a persisted approval context.
// Transitions run strictly awaiting_approval → approved → estimated.
// There is no rejection state: an abandoned context simply never
// resumes.
type Status string

const (
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusApproved         Status = "approved"
	StatusEstimated        Status = "estimated"
)

// Context is the persisted snapshot of a blocked estimation. It carries
// everything needed to resume in a different process or session.
type Context struct {
	ContextID  string              `json:"context_id"`
	Complexity float64             `json:"complexity"`
	Boundary   scope.ScopeBoundary `json:"scope_boundary"`
	TeamSize   int                 `json:"team_size"`
	Velocity   float64             `json:"velocity"`
	CreatedAt  string              `json:"created_at"`
	Status     Status              `json:"status"`
}
