package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"scopegate/internal/approval"
	"scopegate/internal/convlog"
	"scopegate/internal/estimate"
)

// InferTool handles the scope_infer MCP tool: the entry point of the
// scope workflow. It runs the pure pipeline over the user's free-text
// answers and either opens a clarification negotiation, blocks at the
// approval gate, or (for an already-approved boundary) estimates.
type InferTool struct {
	pipeline  *Pipeline
	gate      *approval.Gate
	estimator estimate.Estimator
	neg       *Negotiation
	log       convlog.Log
}

// NewInferTool creates an InferTool with its dependencies.
func NewInferTool(pipeline *Pipeline, gate *approval.Gate, estimator estimate.Estimator, neg *Negotiation) *InferTool {
	return &InferTool{pipeline: pipeline, gate: gate, estimator: estimator, neg: neg}
}

// SetLog attaches the optional conversation log.
func (t *InferTool) SetLog(l convlog.Log) {
	t.log = l
}

// Definition returns the MCP tool definition for registration.
func (t *InferTool) Definition() mcp.Tool {
	return mcp.NewTool("scope_infer",
		mcp.WithDescription(
			"Infer the scope of a feature (affected tables, files, services, dependencies) "+
				"from free-text requirements. This is the first step before effort estimation: "+
				"no estimate is ever produced against ambiguous or unconfirmed scope. "+
				"The tool either asks clarifying questions (answer them with scope_clarify), "+
				"or blocks on human approval (confirm with scope_approve).",
		),
		mcp.WithString("functional_scope",
			mcp.Required(),
			mcp.Description("Free-text description of the functional scope: what the feature does, which data and screens it touches."),
		),
		mcp.WithString("technical_scope",
			mcp.Description("Optional second answer describing technical dependencies: external services, protocols, libraries."),
		),
		mcp.WithNumber("team_size",
			mcp.Description("Developers available for this feature (default 2). Used by the estimator once scope is approved."),
		),
		mcp.WithNumber("velocity",
			mcp.Description("Story points per developer per sprint (default 10)."),
		),
	)
}

// Handle processes the scope_infer tool call.
func (t *InferTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	functional := req.GetString("functional_scope", "")
	if strings.TrimSpace(functional) == "" {
		return mcp.NewToolResultError("'functional_scope' is required"), nil
	}

	text := functional
	if technical := req.GetString("technical_scope", ""); technical != "" {
		text += "\n" + technical
	}
	teamSize := intArg(req, "team_size", estimate.DefaultTeamSize)
	velocity := floatArg(req, "velocity", estimate.DefaultVelocity)

	t.record(convlog.RoleUser, text)

	_, boundary, validation := t.pipeline.Run(text)

	// Branch 1: ambiguity — open a clarification negotiation.
	clarifier := t.neg.begin(text, teamSize, velocity)
	if clarifier.ShouldClarify(validation) {
		prompt := clarifier.Prompt(validation, boundary.Gaps)
		t.record(convlog.RoleAssistant, prompt)
		return mcp.NewToolResultText(prompt +
			"\nAnswer with `scope_clarify` to refine the scope.\n"), nil
	}
	t.neg.end()

	// Branch 2: the approval gate. Fresh boundaries are never
	// pre-approved, so inference normally blocks here.
	if t.gate.ApprovalRequired(boundary) {
		blocked, err := t.gate.Block(boundary, teamSize, velocity)
		if err != nil {
			return nil, fmt.Errorf("blocking for approval: %w", err)
		}
		return mcp.NewToolResultText(blockedMessage(blocked)), nil
	}

	// Branch 3: already approved — estimate directly.
	est := t.estimator.Estimate(boundary.EstimatedComplexity, teamSize, velocity)
	return mcp.NewToolResultText(fmt.Sprintf(
		"Scope approved (confidence %.0f%%): %d tables, %d files, %d services.\n"+
			"Estimate: %.1f story points, %.1f sprints (%.1f weeks).\n",
		boundary.Confidence*100, boundary.TableCount, boundary.FileCount,
		boundary.ServiceCount, est.StoryPoints, est.Sprints, est.Weeks,
	)), nil
}

// blockedMessage renders a blocked result as tool output.
func blockedMessage(b *approval.BlockedResult) string {
	var sb strings.Builder
	sb.WriteString(b.ClarificationPrompt)
	sb.WriteString("\n---\n")
	fmt.Fprintf(&sb, "status: %s | context_id: %s | confidence: %.0f%% | next_action: %s\n",
		b.Status, b.ContextID, b.Confidence*100, b.NextAction)
	sb.WriteString(b.Message)
	sb.WriteString("\n")
	return sb.String()
}

// record writes to the conversation log, best-effort.
func (t *InferTool) record(role, text string) {
	if t.log == nil {
		return
	}
	if err := t.log.Record(role, text); err != nil {
		log.Printf("WARNING: conversation log: %v", err)
	}
}
