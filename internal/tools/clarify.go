package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"scopegate/internal/approval"
	"scopegate/internal/convlog"
)

// ClarifyTool handles the scope_clarify MCP tool: one round of the
// bounded clarification loop. It reparses the user's answer, folds it
// into the negotiation text, re-runs the pipeline, and either asks
// again or hands the boundary to the approval gate.
type ClarifyTool struct {
	pipeline *Pipeline
	gate     *approval.Gate
	neg      *Negotiation
	log      convlog.Log
}

// NewClarifyTool creates a ClarifyTool with its dependencies.
func NewClarifyTool(pipeline *Pipeline, gate *approval.Gate, neg *Negotiation) *ClarifyTool {
	return &ClarifyTool{pipeline: pipeline, gate: gate, neg: neg}
}

// SetLog attaches the optional conversation log.
func (t *ClarifyTool) SetLog(l convlog.Log) {
	t.log = l
}

// Definition returns the MCP tool definition for registration.
func (t *ClarifyTool) Definition() mcp.Tool {
	return mcp.NewTool("scope_clarify",
		mcp.WithDescription(
			"Answer the clarification questions from scope_infer. The answer is reparsed "+
				"for concrete entities (vague language is penalized) and the scope is "+
				"re-inferred from the combined text. At most two rounds run before the "+
				"workflow escalates to the approval gate with whatever scope it has.",
		),
		mcp.WithString("answer",
			mcp.Required(),
			mcp.Description("The user's answer. Name concrete tables, files (with extensions), and services."),
		),
	)
}

// Handle processes the scope_clarify tool call.
func (t *ClarifyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	answer := req.GetString("answer", "")
	if strings.TrimSpace(answer) == "" {
		return mcp.NewToolResultError("'answer' is required"), nil
	}

	t.neg.mu.Lock()
	if !t.neg.active {
		t.neg.mu.Unlock()
		return mcp.NewToolResultError("no active scope negotiation — run scope_infer first"), nil
	}
	clarifier := t.neg.clarifier
	t.neg.text = t.neg.text + "\n" + answer
	combined := t.neg.text
	teamSize := t.neg.teamSize
	velocity := t.neg.velocity
	t.neg.mu.Unlock()

	t.record(convlog.RoleUser, answer)

	parsed := clarifier.ParseResponse(answer)
	clarifier.Session.NextRound()

	_, boundary, validation := t.pipeline.Run(combined)

	if clarifier.ShouldStop(validation) {
		t.neg.end()
		blocked, err := t.gate.Block(boundary, teamSize, velocity)
		if err != nil {
			return nil, fmt.Errorf("blocking for approval: %w", err)
		}
		msg := blockedMessage(blocked)
		if !clarifier.CanContinue() && validation.ConfidenceScore < clarifier.Session.ConfidenceThreshold {
			msg = "Clarification rounds exhausted — escalating to scope approval.\n\n" + msg
		}
		return mcp.NewToolResultText(msg), nil
	}

	prompt := clarifier.Prompt(validation, boundary.Gaps)
	if parsed.IsVague && len(parsed.VagueKeywords) > 0 {
		prompt = fmt.Sprintf(
			"Your answer still reads as vague (%s). Please name concrete entities.\n\n",
			strings.Join(parsed.VagueKeywords, ", "),
		) + prompt
	}
	t.record(convlog.RoleAssistant, prompt)
	return mcp.NewToolResultText(prompt +
		"\nAnswer again with `scope_clarify`.\n"), nil
}

// record writes to the conversation log, best-effort.
func (t *ClarifyTool) record(role, text string) {
	if t.log == nil {
		return
	}
	if err := t.log.Record(role, text); err != nil {
		log.Printf("WARNING: conversation log: %v", err)
	}
}
