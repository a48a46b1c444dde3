// Package server wires all MCP components and creates the server
// instance. This is the composition root: it creates concrete
// implementations and injects them into the tools/prompts/resources
// that depend on abstractions. No business logic lives here.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"scopegate/internal/approval"
	"scopegate/internal/convlog"
	"scopegate/internal/estimate"
	"scopegate/internal/prompts"
	"scopegate/internal/resources"
	"scopegate/internal/templates"
	"scopegate/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the open database connections
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call.
func New() (*server.MCPServer, func(), error) {
	// --- Shared dependencies ---

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, noop, fmt.Errorf("creating template renderer: %w", err)
	}

	// The context store is mandatory: without it the approval gate
	// cannot persist blocked negotiations, and the whole point of the
	// gate is surviving process boundaries.
	store, err := approval.NewSQLiteStore(approval.DefaultConfig())
	if err != nil {
		return nil, noop, fmt.Errorf("opening approval context store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Printf("WARNING: approval store close: %v", err)
		}
	}

	estimator := estimate.NewVelocityEstimator()
	gate := approval.NewGate(store, estimator, renderer)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"scopegate",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register scope tools ---
	//
	// The pipeline components are pure and shared; the negotiation
	// state is shared between infer and clarify only.

	pipeline := tools.NewPipeline()
	neg := tools.NewNegotiation()

	inferTool := tools.NewInferTool(pipeline, gate, estimator, neg)
	s.AddTool(inferTool.Definition(), inferTool.Handle)

	clarifyTool := tools.NewClarifyTool(pipeline, gate, neg)
	s.AddTool(clarifyTool.Definition(), clarifyTool.Handle)

	approveTool := tools.NewApproveTool(gate, renderer)
	s.AddTool(approveTool.Definition(), approveTool.Handle)

	statusTool := tools.NewStatusTool(store)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	// --- Wire the conversation log ---
	//
	// The log is an independent, write-only subsystem: if it fails to
	// initialize the scope workflow still works. We log a warning and
	// run without it.

	if convStore, convErr := convlog.New(convlog.DefaultConfig()); convErr != nil {
		log.Printf("WARNING: conversation log disabled: %v", convErr)
	} else {
		prev := cleanup
		cleanup = func() {
			if err := convStore.Close(); err != nil {
				log.Printf("WARNING: conversation log close: %v", err)
			}
			prev()
		}
		gate.SetLog(convStore)
		inferTool.SetLog(convStore)
		clarifyTool.SetLog(convStore)
		approveTool.SetLog(convStore)
	}

	// --- Register prompts ---

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store)
	s.AddResource(resourceHandler.PendingResource(), resourceHandler.HandlePending)

	return s, cleanup, nil
}

// noop is a no-op cleanup function.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to drive the scope workflow.
func serverInstructions() string {
	return `You have access to scopegate, a scope-inference and estimation-gating MCP server.

## What scopegate does

Before any effort estimate is produced, scopegate infers the feature's scope
(affected database tables, code files, external services, technical
dependencies) from free-text requirements, scores how well-specified it is,
and requires human approval when the scope is ambiguous. An estimate is NEVER
produced against unconfirmed scope.

## Workflow

1. Collect the user's answers to two questions:
   - Functional scope: what does the feature do, which data and screens?
   - Technical dependencies: which services, protocols, libraries?
2. Call scope_infer with both answers (and team_size/velocity if known).
3. If the response asks clarifying questions, relay them to the user verbatim,
   collect ONE combined answer, and call scope_clarify with it. At most two
   rounds run; after that the workflow escalates to approval automatically.
4. If the response says scope approval is required, present the inferred
   entities and the outstanding questions to the user. Then either:
   - call scope_approve with the context_id to confirm as-is, or
   - call scope_approve with a revised_scope YAML plan if the user corrects
     the scope (lists: tables, files, services, dependencies).
5. scope_approve returns the effort estimate. Present it with the caveat that
   it reflects the APPROVED scope, not hidden work.

## Important rules

- NEVER promise an estimate before scope_approve has succeeded.
- Approval context ids survive restarts: at the start of a session, call
  scope_status (or read scope://approvals/pending) and offer to resume any
  blocked negotiation.
- If scope_approve reports the context id is not found, the negotiation has
  expired — re-run scope_infer rather than guessing.
- When the user answers clarification questions, pass their words through
  unchanged. Do not embellish: vague answers are SUPPOSED to be penalized.
- Encourage concrete answers: table names, file names with extensions
  (UserService.cs), service names (Azure AD, SendGrid).`
}
