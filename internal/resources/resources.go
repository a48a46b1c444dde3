// Package resources implements MCP resource handlers for the scope
// workflow. Resources provide read-only data under scope:// URIs.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"scopegate/internal/approval"
)

// Handler manages scope resource endpoints.
type Handler struct {
	store *approval.SQLiteStore
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *approval.SQLiteStore) *Handler {
	return &Handler{store: store}
}

// PendingResource returns the MCP resource definition for pending
// approvals.
func (h *Handler) PendingResource() mcp.Resource {
	return mcp.NewResource(
		"scope://approvals/pending",
		"Pending Scope Approvals",
		mcp.WithResourceDescription("Scope negotiations blocked awaiting human approval"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandlePending returns all awaiting approval contexts as JSON.
func (h *Handler) HandlePending(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	awaiting, err := h.store.ListAwaiting()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(awaiting, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling pending approvals: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
