package approval

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"scopegate/internal/convlog"
	"scopegate/internal/estimate"
	"scopegate/internal/scope"
	"scopegate/internal/templates"
)

// ApprovalThreshold is the confidence below which a human must confirm
// the inferred scope before estimation may run. Deliberately stricter
// than scope.ConfidenceThreshold (0.70): a boundary can pass
// clarification and still need explicit sign-off before downstream cost
// is committed.
const ApprovalThreshold = 0.80

// Approval methods recorded on the boundary when estimation resumes.
const (
	MethodExplicit = "explicit"
	MethodPlan     = "plan"
)

// BlockedResult is the structured outcome when estimation is blocked
// pending approval. No estimate is computed or carried here.
type BlockedResult struct {
	Status              string  `json:"status"`
	ContextID           string  `json:"context_id"`
	Confidence          float64 `json:"confidence"`
	ClarificationPrompt string  `json:"clarification_prompt"`
	NextAction          string  `json:"next_action"`
	Message             string  `json:"message"`
}

// ResumeResult is the structured outcome of resuming a blocked
// estimation. A missing context_id yields Success=false with an error
// message, never a Go error — the caller asks the user to re-run scope
// inference.
type ResumeResult struct {
	Success  bool                 `json:"success"`
	Error    string               `json:"error,omitempty"`
	Boundary *scope.ScopeBoundary `json:"boundary,omitempty"`
	Estimate *estimate.Estimate   `json:"estimate,omitempty"`
}

// Gate is the approval checkpoint. It is the only component in the
// scope workflow that touches shared, externally-visible state.
type Gate struct {
	store     ContextStore
	estimator estimate.Estimator
	renderer  templates.Renderer
	log       convlog.Log // nil-safe; logging is best-effort
}

// NewGate creates a Gate with its collaborators.
func NewGate(store ContextStore, estimator estimate.Estimator, renderer templates.Renderer) *Gate {
	return &Gate{store: store, estimator: estimator, renderer: renderer}
}

// SetLog attaches the optional conversation log.
func (g *Gate) SetLog(l convlog.Log) {
	g.log = l
}

// ApprovalRequired reports whether a human must confirm this boundary:
// confidence below the approval threshold, outstanding gaps, or no
// recorded approval.
func (g *Gate) ApprovalRequired(b *scope.ScopeBoundary) bool {
	return b.Confidence < ApprovalThreshold || len(b.Gaps) > 0 || !b.UserApproved
}

// Block persists an approval context for the boundary and returns the
// structured blocked result. The negotiation survives process and
// session boundaries through the context store alone.
func (g *Gate) Block(b *scope.ScopeBoundary, teamSize int, velocity float64) (*BlockedResult, error) {
	contextID := newContextID()
	b.ContextID = contextID

	ctx := &Context{
		ContextID:  contextID,
		Complexity: b.EstimatedComplexity,
		Boundary:   *b,
		TeamSize:   teamSize,
		Velocity:   velocity,
		CreatedAt:  timeNow().UTC().Format(time.RFC3339),
		Status:     StatusAwaitingApproval,
	}
	if err := g.store.Store(ctx); err != nil {
		return nil, fmt.Errorf("blocking estimation: %w", err)
	}

	message, err := g.confirmationMessage(b, contextID)
	if err != nil {
		return nil, fmt.Errorf("rendering confirmation: %w", err)
	}
	g.record(convlog.RoleAssistant, message)

	return &BlockedResult{
		Status:              "scope_approval_required",
		ContextID:           contextID,
		Confidence:          b.Confidence,
		ClarificationPrompt: message,
		NextAction:          "plan",
		Message:             "Estimation is blocked until the inferred scope is approved.",
	}, nil
}

// Resume unblocks a persisted negotiation. An unknown context_id fails
// closed. Otherwise the optional revised scope is overlaid, the boundary
// is unconditionally approved — confidence reset to 1.0, gaps cleared;
// human override trumps inference — and the estimator runs.
func (g *Gate) Resume(contextID string, revised *scope.Entities) *ResumeResult {
	ctx, err := g.store.Retrieve(contextID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ResumeResult{
				Success: false,
				Error:   fmt.Sprintf("approval context %q not found — re-run scope inference", contextID),
			}
		}
		return &ResumeResult{Success: false, Error: err.Error()}
	}

	boundary := ctx.Boundary
	method := MethodExplicit
	if revised != nil {
		method = MethodPlan
		rebuilt := scope.NewBuilder().Build(revised, boundary.Confidence)
		rebuilt.ContextID = boundary.ContextID
		boundary = *rebuilt
		ctx.Complexity = boundary.EstimatedComplexity
	}

	boundary.UserApproved = true
	boundary.Confidence = 1.0
	boundary.Gaps = []string{}
	boundary.ApprovalMethod = method
	boundary.ApprovalTimestamp = timeNow().UTC().Format(time.RFC3339)

	ctx.Boundary = boundary
	ctx.Status = StatusApproved
	if err := g.store.Store(ctx); err != nil {
		return &ResumeResult{Success: false, Error: err.Error()}
	}
	if err := g.store.UpdateStatus(contextID, StatusApproved); err != nil {
		return &ResumeResult{Success: false, Error: err.Error()}
	}

	est := g.estimator.Estimate(ctx.Complexity, ctx.TeamSize, ctx.Velocity)

	if err := g.store.UpdateStatus(contextID, StatusEstimated); err != nil {
		return &ResumeResult{Success: false, Error: err.Error()}
	}

	return &ResumeResult{
		Success:  true,
		Boundary: &boundary,
		Estimate: &est,
	}
}

// confirmationMessage renders the approval request: extracted entities
// plus any outstanding gaps as numbered questions.
func (g *Gate) confirmationMessage(b *scope.ScopeBoundary, contextID string) (string, error) {
	entities := b.Entities
	if entities == nil {
		entities = &scope.Entities{}
	}
	questions := make([]string, 0, len(b.Gaps))
	for _, gap := range b.Gaps {
		q := gap
		if !strings.HasSuffix(q, "?") {
			q += " — is this acceptable?"
		}
		questions = append(questions, q)
	}
	return g.renderer.Render(templates.ApprovalConfirmation, templates.ApprovalConfirmationData{
		ContextID:    contextID,
		Confidence:   int(b.Confidence*100 + 0.5),
		Tables:       entities.Tables,
		Files:        entities.Files,
		Services:     entities.Services,
		Dependencies: entities.Dependencies,
		Questions:    questions,
	})
}

// record writes to the conversation log, best-effort.
func (g *Gate) record(role, text string) {
	if g.log == nil {
		return
	}
	if err := g.log.Record(role, text); err != nil {
		log.Printf("WARNING: conversation log: %v", err)
	}
}

// newContextID builds a globally unique, time-based context id.
func newContextID() string {
	return fmt.Sprintf("scope-%d-%s", timeNow().UTC().UnixNano(), uuid.NewString()[:8])
}
