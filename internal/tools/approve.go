package tools

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"scopegate/internal/approval"
	"scopegate/internal/convlog"
	"scopegate/internal/plan"
	"scopegate/internal/scope"
	"scopegate/internal/templates"
)

// ApproveTool handles the scope_approve MCP tool: resuming a blocked
// estimation across process and session boundaries via its context_id.
type ApproveTool struct {
	gate     *approval.Gate
	renderer templates.Renderer
	log      convlog.Log
}

// NewApproveTool creates an ApproveTool with its dependencies.
func NewApproveTool(gate *approval.Gate, renderer templates.Renderer) *ApproveTool {
	return &ApproveTool{gate: gate, renderer: renderer}
}

// SetLog attaches the optional conversation log.
func (t *ApproveTool) SetLog(l convlog.Log) {
	t.log = l
}

// Definition returns the MCP tool definition for registration.
func (t *ApproveTool) Definition() mcp.Tool {
	return mcp.NewTool("scope_approve",
		mcp.WithDescription(
			"Approve the inferred scope for a blocked estimation and produce the effort "+
				"estimate. Approval is a human override: it resets confidence to 100% and "+
				"clears all gaps, regardless of the original ambiguity. Optionally supply "+
				"a revised_scope YAML plan to correct the scope before approving.",
		),
		mcp.WithString("context_id",
			mcp.Required(),
			mcp.Description("The context id from the scope-approval-required message."),
		),
		mcp.WithString("revised_scope",
			mcp.Description(
				"Optional YAML plan overriding the inferred scope. Schema: four optional "+
					"string lists — tables, files, services, dependencies. Unknown keys are rejected.",
			),
		),
	)
}

// Handle processes the scope_approve tool call.
func (t *ApproveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contextID := req.GetString("context_id", "")
	if contextID == "" {
		return mcp.NewToolResultError("'context_id' is required"), nil
	}

	var revised *scope.Entities
	if src := req.GetString("revised_scope", ""); src != "" {
		entities, err := plan.ParseRevisedScope(src)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		revised = entities
	}

	result := t.gate.Resume(contextID, revised)
	if !result.Success {
		return mcp.NewToolResultError(result.Error), nil
	}

	summary, err := t.renderer.Render(templates.EstimateSummary, templates.EstimateSummaryData{
		ContextID:      contextID,
		ApprovalMethod: result.Boundary.ApprovalMethod,
		StoryPoints:    result.Estimate.StoryPoints,
		Sprints:        result.Estimate.Sprints,
		Weeks:          result.Estimate.Weeks,
		TeamSize:       result.Estimate.TeamSize,
		Velocity:       result.Estimate.Velocity,
		Complexity:     result.Boundary.EstimatedComplexity,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering estimate summary: %w", err)
	}

	t.record(convlog.RoleAssistant, summary)
	return mcp.NewToolResultText(summary), nil
}

// record writes to the conversation log, best-effort.
func (t *ApproveTool) record(role, text string) {
	if t.log == nil {
		return
	}
	if err := t.log.Record(role, text); err != nil {
		log.Printf("WARNING: conversation log: %v", err)
	}
}
