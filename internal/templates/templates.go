// Package templates renders the user-visible markdown documents of the
// scope workflow. Templates are compiled once at startup; rendering a
// known template with its data struct cannot fail at runtime.
package templates

import (
	"fmt"
	"strings"
	"text/template"
)

// Template identifies one of the embedded documents.
type Template string

const (
	// ApprovalConfirmation is the message shown when estimation is
	// blocked pending human approval of the inferred scope.
	ApprovalConfirmation Template = "approval_confirmation"
	// EstimateSummary is the message shown once the estimator has run.
	EstimateSummary Template = "estimate_summary"
)

// ApprovalConfirmationData drives the ApprovalConfirmation template.
type ApprovalConfirmationData struct {
	ContextID    string
	Confidence   int // percentage
	Tables       []string
	Files        []string
	Services     []string
	Dependencies []string
	Questions    []string
}

// EstimateSummaryData drives the EstimateSummary template.
type EstimateSummaryData struct {
	ContextID      string
	ApprovalMethod string
	StoryPoints    float64
	Sprints        float64
	Weeks          float64
	TeamSize       int
	Velocity       float64
	Complexity     float64
}

const approvalConfirmationTmpl = `# Scope Approval Required

Inferred scope (confidence: {{.Confidence}}%):

- **Tables** ({{len .Tables}}): {{join .Tables}}
- **Files** ({{len .Files}}): {{join .Files}}
- **Services** ({{len .Services}}): {{join .Services}}
- **Dependencies** ({{len .Dependencies}}): {{join .Dependencies}}
{{if .Questions}}
Outstanding questions:
{{range $i, $q := .Questions}}{{inc $i}}. {{$q}}
{{end}}{{end}}
Reply with scope_approve and context_id ` + "`{{.ContextID}}`" + ` to confirm this
scope as-is, or include a revised_scope plan to correct it. No estimate
is produced until the scope is approved.
`

const estimateSummaryTmpl = `# Effort Estimate

Scope approved ({{.ApprovalMethod}}) — context ` + "`{{.ContextID}}`" + `

| Metric | Value |
|---|---|
| Complexity | {{printf "%.0f" .Complexity}}/100 |
| Story points | {{printf "%.1f" .StoryPoints}} |
| Sprints | {{printf "%.1f" .Sprints}} |
| Weeks | {{printf "%.1f" .Weeks}} |
| Team size | {{.TeamSize}} |
| Velocity | {{printf "%.0f" .Velocity}} pts/dev/sprint |
`

// Renderer renders workflow templates.
type Renderer interface {
	Render(t Template, data any) (string, error)
}

type renderer struct {
	tmpls map[Template]*template.Template
}

// NewRenderer parses all embedded templates.
func NewRenderer() (Renderer, error) {
	funcs := template.FuncMap{
		"join": func(items []string) string {
			if len(items) == 0 {
				return "(none)"
			}
			return strings.Join(items, ", ")
		},
		"inc": func(i int) int { return i + 1 },
	}

	sources := map[Template]string{
		ApprovalConfirmation: approvalConfirmationTmpl,
		EstimateSummary:      estimateSummaryTmpl,
	}

	tmpls := make(map[Template]*template.Template, len(sources))
	for name, src := range sources {
		t, err := template.New(string(name)).Funcs(funcs).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		tmpls[name] = t
	}

	return &renderer{tmpls: tmpls}, nil
}

// Render executes the named template with the given data.
func (r *renderer) Render(t Template, data any) (string, error) {
	tmpl, ok := r.tmpls[t]
	if !ok {
		return "", fmt.Errorf("unknown template: %s", t)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", t, err)
	}
	return sb.String(), nil
}
