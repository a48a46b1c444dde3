// Package tools implements the MCP tool handlers for the scope workflow.
//
// Each tool is a struct with dependencies injected via its constructor;
// Definition() returns the mcp.Tool schema and Handle() processes the
// request. Business logic lives in internal/scope and internal/approval —
// tools only translate between MCP requests and the pipeline.
package tools

import (
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"scopegate/internal/scope"
)

// Pipeline bundles the pure scope components so every tool runs the
// same extract → score → build → validate sequence.
type Pipeline struct {
	Extractor *scope.Extractor
	Scorer    *scope.Scorer
	Builder   *scope.Builder
	Validator *scope.Validator
}

// NewPipeline creates a Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Extractor: scope.NewExtractor(),
		Scorer:    scope.NewScorer(),
		Builder:   scope.NewBuilder(),
		Validator: scope.NewValidator(),
	}
}

// Run executes the full pure pipeline on requirement text.
func (p *Pipeline) Run(text string) (*scope.Entities, *scope.ScopeBoundary, scope.ValidationResult) {
	entities := p.Extractor.Extract(text)
	confidence := p.Scorer.Score(entities, text)
	boundary := p.Builder.Build(entities, confidence)
	validation := p.Validator.Validate(boundary)
	return entities, boundary, validation
}

// Negotiation is the single active clarification negotiation. Stdio MCP
// serves one client and only one negotiation runs at a time — a new
// scope_infer call replaces any unfinished one. The clarifier (and its
// round counter) is created fresh per negotiation and discarded at the
// end, never shared across negotiations.
type Negotiation struct {
	mu sync.Mutex

	active    bool
	clarifier *scope.Clarifier
	text      string
	teamSize  int
	velocity  float64
}

// NewNegotiation creates an empty negotiation slot.
func NewNegotiation() *Negotiation {
	return &Negotiation{}
}

// begin starts a fresh negotiation, discarding any previous one.
func (n *Negotiation) begin(text string, teamSize int, velocity float64) *scope.Clarifier {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = true
	n.clarifier = scope.NewClarifier()
	n.text = text
	n.teamSize = teamSize
	n.velocity = velocity
	return n.clarifier
}

// end closes the current negotiation and drops its session.
func (n *Negotiation) end() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = false
	n.clarifier = nil
	n.text = ""
}

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg extracts a float argument with a default.
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}
