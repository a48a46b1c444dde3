package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"scopegate/internal/approval"
)

// StatusTool handles the scope_status MCP tool: inspecting persisted
// approval contexts. With a context_id it shows one negotiation; without
// one it lists everything still awaiting approval.
type StatusTool struct {
	store *approval.SQLiteStore
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(store *approval.SQLiteStore) *StatusTool {
	return &StatusTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("scope_status",
		mcp.WithDescription(
			"Show persisted scope-approval contexts. Pass context_id for one "+
				"negotiation's full snapshot, or omit it to list everything still "+
				"awaiting approval (e.g. after a session restart).",
		),
		mcp.WithString("context_id",
			mcp.Description("Optional context id to inspect."),
		),
	)
}

// Handle processes the scope_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if contextID := req.GetString("context_id", ""); contextID != "" {
		actx, err := t.store.Retrieve(contextID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := json.MarshalIndent(actx, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling context: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	awaiting, err := t.store.ListAwaiting()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(awaiting) == 0 {
		return mcp.NewToolResultText("No scope negotiations are awaiting approval."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Awaiting Approval (%d)\n\n", len(awaiting))
	for _, actx := range awaiting {
		fmt.Fprintf(&sb, "- `%s` — confidence %.0f%%, complexity %.0f/100, created %s\n",
			actx.ContextID, actx.Boundary.Confidence*100, actx.Complexity, actx.CreatedAt)
	}
	sb.WriteString("\nResume any of these with `scope_approve`.\n")
	return mcp.NewToolResultText(sb.String()), nil
}
