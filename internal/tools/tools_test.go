package tools

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"scopegate/internal/approval"
	"scopegate/internal/estimate"
	"scopegate/internal/scope"
	"scopegate/internal/templates"
)

// --- Test helpers ---

type fixture struct {
	pipeline  *Pipeline
	gate      *approval.Gate
	store     *approval.SQLiteStore
	estimator estimate.Estimator
	renderer  templates.Renderer
	neg       *Negotiation
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store, err := approval.NewSQLiteStore(approval.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("setup: approval store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	renderer, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("setup: renderer: %v", err)
	}

	estimator := estimate.NewVelocityEstimator()
	return &fixture{
		pipeline:  NewPipeline(),
		gate:      approval.NewGate(store, estimator, renderer),
		store:     store,
		estimator: estimator,
		renderer:  renderer,
		neg:       NewNegotiation(),
	}
}

func callReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

var contextIDRe = regexp.MustCompile(`scope-\d+-[0-9a-f]{8}`)

const preciseScope = "Users table, UserProfiles table, Sessions table. UserService.cs, AuthController.cs. " +
	"Azure AD for SSO. SendGrid for emails. Requires OAuth 2.0 and JWT"

// --- InferTool ---

func TestInferTool_Handle_MissingFunctionalScope(t *testing.T) {
	f := setup(t)
	tool := NewInferTool(f.pipeline, f.gate, f.estimator, f.neg)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected error result for missing functional_scope")
	}
}

func TestInferTool_Handle_VagueScopeOpensClarification(t *testing.T) {
	f := setup(t)
	tool := NewInferTool(f.pipeline, f.gate, f.estimator, f.neg)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"functional_scope": "Add authentication to the system. Make it secure.",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "clarification is needed") {
		t.Errorf("result should ask for clarification, got:\n%s", text)
	}
	if !strings.Contains(text, "- Tables:") || !strings.Contains(text, "- Files:") {
		t.Errorf("result should hint both tables and files, got:\n%s", text)
	}
	if !strings.Contains(text, "scope_clarify") {
		t.Errorf("result should point at scope_clarify, got:\n%s", text)
	}
	if !f.neg.active {
		t.Error("negotiation should be active after a clarification prompt")
	}
}

func TestInferTool_Handle_PreciseScopeBlocksOnApproval(t *testing.T) {
	f := setup(t)
	tool := NewInferTool(f.pipeline, f.gate, f.estimator, f.neg)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"functional_scope": preciseScope,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	text := getResultText(result)
	if !strings.Contains(text, "# Scope Approval Required") {
		t.Errorf("result should block on approval, got:\n%s", text)
	}
	if !strings.Contains(text, "status: scope_approval_required") {
		t.Errorf("result missing status line, got:\n%s", text)
	}
	if !strings.Contains(text, "next_action: plan") {
		t.Errorf("result missing next action, got:\n%s", text)
	}
	if f.neg.active {
		t.Error("negotiation should be closed once the gate takes over")
	}

	// The block is persisted and resumable.
	id := contextIDRe.FindString(text)
	if id == "" {
		t.Fatalf("no context id in result:\n%s", text)
	}
	if _, err := f.store.Retrieve(id); err != nil {
		t.Errorf("context %s not persisted: %v", id, err)
	}
}

// --- ClarifyTool ---

func TestClarifyTool_Handle_NoActiveNegotiation(t *testing.T) {
	f := setup(t)
	tool := NewClarifyTool(f.pipeline, f.gate, f.neg)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"answer": "Tables: Users",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected error result without an active negotiation")
	}
	if !strings.Contains(getResultText(result), "scope_infer") {
		t.Errorf("error should point at scope_infer, got: %s", getResultText(result))
	}
}

func TestClarifyTool_Handle_PreciseAnswerEscalatesToApproval(t *testing.T) {
	f := setup(t)
	infer := NewInferTool(f.pipeline, f.gate, f.estimator, f.neg)
	clarify := NewClarifyTool(f.pipeline, f.gate, f.neg)

	if _, err := infer.Handle(context.Background(), callReq(map[string]interface{}{
		"functional_scope": "Add authentication to the system.",
	})); err != nil {
		t.Fatalf("infer failed: %v", err)
	}

	result, err := clarify.Handle(context.Background(), callReq(map[string]interface{}{
		"answer": "Tables: Users, Sessions, UserProfiles\n" +
			"Files: UserService.cs, AuthController.cs\n" +
			"Services: Azure AD",
	}))
	if err != nil {
		t.Fatalf("clarify failed: %v", err)
	}

	text := getResultText(result)
	if !strings.Contains(text, "# Scope Approval Required") {
		t.Errorf("precise answer should reach the approval gate, got:\n%s", text)
	}
	if f.neg.active {
		t.Error("negotiation should be closed after escalation")
	}
}

func TestClarifyTool_Handle_VagueAnswerAsksAgain(t *testing.T) {
	f := setup(t)
	infer := NewInferTool(f.pipeline, f.gate, f.estimator, f.neg)
	clarify := NewClarifyTool(f.pipeline, f.gate, f.neg)

	if _, err := infer.Handle(context.Background(), callReq(map[string]interface{}{
		"functional_scope": "Add authentication to the system.",
	})); err != nil {
		t.Fatalf("infer failed: %v", err)
	}

	result, err := clarify.Handle(context.Background(), callReq(map[string]interface{}{
		"answer": "maybe some of the user stuff",
	}))
	if err != nil {
		t.Fatalf("clarify failed: %v", err)
	}

	text := getResultText(result)
	if !strings.Contains(text, "still reads as vague") {
		t.Errorf("vague answer should be called out, got:\n%s", text)
	}
	if !strings.Contains(text, "Answer again") {
		t.Errorf("should invite another round, got:\n%s", text)
	}
	if !f.neg.active {
		t.Error("negotiation should stay active with rounds remaining")
	}
}

func TestClarifyTool_Handle_RoundBudgetExhausts(t *testing.T) {
	f := setup(t)
	infer := NewInferTool(f.pipeline, f.gate, f.estimator, f.neg)
	clarify := NewClarifyTool(f.pipeline, f.gate, f.neg)

	if _, err := infer.Handle(context.Background(), callReq(map[string]interface{}{
		"functional_scope": "Add authentication to the system.",
	})); err != nil {
		t.Fatalf("infer failed: %v", err)
	}

	first, err := clarify.Handle(context.Background(), callReq(map[string]interface{}{
		"answer": "maybe some of the user stuff",
	}))
	if err != nil {
		t.Fatalf("first clarify failed: %v", err)
	}
	if strings.Contains(getResultText(first), "exhausted") {
		t.Fatalf("first round should not exhaust the budget:\n%s", getResultText(first))
	}

	second, err := clarify.Handle(context.Background(), callReq(map[string]interface{}{
		"answer": "possibly a few other things",
	}))
	if err != nil {
		t.Fatalf("second clarify failed: %v", err)
	}

	text := getResultText(second)
	if !strings.Contains(text, "Clarification rounds exhausted") {
		t.Errorf("second round should exhaust the budget, got:\n%s", text)
	}
	if !strings.Contains(text, "# Scope Approval Required") {
		t.Errorf("exhaustion should still land at the approval gate, got:\n%s", text)
	}
	if f.neg.active {
		t.Error("negotiation should be closed after exhaustion")
	}
}

// --- ApproveTool ---

func blockBoundary(t *testing.T, f *fixture) string {
	t.Helper()
	boundary := &scope.ScopeBoundary{
		TableCount:          2,
		FileCount:           1,
		EstimatedComplexity: 40,
		Confidence:          0.65,
		Gaps:                []string{},
		Entities:            &scope.Entities{Tables: []string{"Orders", "Users"}, Files: []string{"OrderService.cs"}},
	}
	blocked, err := f.gate.Block(boundary, 2, 10)
	if err != nil {
		t.Fatalf("setup: block: %v", err)
	}
	return blocked.ContextID
}

func TestApproveTool_Handle_MissingContextID(t *testing.T) {
	f := setup(t)
	tool := NewApproveTool(f.gate, f.renderer)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected error result for missing context_id")
	}
}

func TestApproveTool_Handle_UnknownContextID(t *testing.T) {
	f := setup(t)
	tool := NewApproveTool(f.gate, f.renderer)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"context_id": "scope-0-deadbeef",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected error result for unknown context_id")
	}
	if !strings.Contains(getResultText(result), "not found") {
		t.Errorf("error = %s, want not-found message", getResultText(result))
	}
}

func TestApproveTool_Handle_ApprovesAndEstimates(t *testing.T) {
	f := setup(t)
	tool := NewApproveTool(f.gate, f.renderer)
	id := blockBoundary(t, f)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"context_id": id,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "# Effort Estimate") {
		t.Errorf("result should contain the estimate summary, got:\n%s", text)
	}
	if !strings.Contains(text, "Scope approved (explicit)") {
		t.Errorf("result should record explicit approval, got:\n%s", text)
	}

	stored, err := f.store.Retrieve(id)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if stored.Status != approval.StatusEstimated {
		t.Errorf("Status = %s, want %s", stored.Status, approval.StatusEstimated)
	}
	if !stored.Boundary.UserApproved || stored.Boundary.Confidence != 1.0 {
		t.Errorf("boundary not approved: %+v", stored.Boundary)
	}
}

func TestApproveTool_Handle_RevisedScopePlan(t *testing.T) {
	f := setup(t)
	tool := NewApproveTool(f.gate, f.renderer)
	id := blockBoundary(t, f)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"context_id":    id,
		"revised_scope": "tables: [Users, Orders, Payments]\nfiles: [CheckoutService.cs]",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "Scope approved (plan)") {
		t.Errorf("result should record plan approval, got:\n%s", getResultText(result))
	}

	stored, err := f.store.Retrieve(id)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if stored.Boundary.TableCount != 3 || stored.Boundary.FileCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1 from revised plan",
			stored.Boundary.TableCount, stored.Boundary.FileCount)
	}
}

func TestApproveTool_Handle_BadRevisedScope(t *testing.T) {
	f := setup(t)
	tool := NewApproveTool(f.gate, f.renderer)
	id := blockBoundary(t, f)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"context_id":    id,
		"revised_scope": "tabels: [Users]",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected error result for bad revised_scope")
	}

	// A rejected plan must not approve anything.
	stored, err := f.store.Retrieve(id)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if stored.Status != approval.StatusAwaitingApproval {
		t.Errorf("Status = %s, want %s", stored.Status, approval.StatusAwaitingApproval)
	}
}

// --- StatusTool ---

func TestStatusTool_Handle_EmptyList(t *testing.T) {
	f := setup(t)
	tool := NewStatusTool(f.store)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(getResultText(result), "No scope negotiations are awaiting approval.") {
		t.Errorf("got: %s", getResultText(result))
	}
}

func TestStatusTool_Handle_ListsAwaiting(t *testing.T) {
	f := setup(t)
	tool := NewStatusTool(f.store)
	id := blockBoundary(t, f)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	text := getResultText(result)
	if !strings.Contains(text, "# Awaiting Approval (1)") {
		t.Errorf("got:\n%s", text)
	}
	if !strings.Contains(text, id) {
		t.Errorf("list missing context id %s:\n%s", id, text)
	}
}

func TestStatusTool_Handle_SingleContext(t *testing.T) {
	f := setup(t)
	tool := NewStatusTool(f.store)
	id := blockBoundary(t, f)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"context_id": id,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	text := getResultText(result)
	if !strings.Contains(text, id) {
		t.Errorf("snapshot missing context id:\n%s", text)
	}
	if !strings.Contains(text, `"awaiting_approval"`) {
		t.Errorf("snapshot missing status:\n%s", text)
	}
}

func TestStatusTool_Handle_UnknownContext(t *testing.T) {
	f := setup(t)
	tool := NewStatusTool(f.store)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"context_id": "scope-0-deadbeef",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected error result for unknown context_id")
	}
}
