// Package prompts implements the MCP prompts of the scope workflow.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the scope-status MCP prompt. It instructs the AI
// to surface pending scope approvals so a blocked negotiation from a
// previous session is not silently forgotten.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("scope-status",
		mcp.WithPromptDescription(
			"Check for scope negotiations awaiting approval. "+
				"Shows blocked estimations that can be resumed with scope_approve.",
		),
	)
}

// Handle processes the scope-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Scope Approval Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `scope_status` to check for pending scope approvals.\n\n" +
						"Then:\n" +
						"1. List any negotiations still awaiting approval, with their confidence\n" +
						"2. Summarize the inferred scope of each (tables, files, services)\n" +
						"3. Ask me whether to approve as-is, correct the scope, or start over with scope_infer",
				),
			},
		},
	}, nil
}
