// Package plan parses the revised-scope plan document a caller may
// supply when approving a blocked estimation. The document is YAML with
// a fixed schema: four optional string lists, nothing else.
package plan

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"scopegate/internal/scope"
)

// RevisedScope is the plan schema. Unknown keys are rejected so a typo
// ("tabels:") fails loudly instead of silently dropping a correction.
type RevisedScope struct {
	Tables       []string `yaml:"tables"`
	Files        []string `yaml:"files"`
	Services     []string `yaml:"services"`
	Dependencies []string `yaml:"dependencies"`
}

// ParseRevisedScope parses and checks a revised-scope plan, returning
// the override entities. At least one category must be non-empty — an
// empty plan is a caller mistake, not an approval of empty scope.
func ParseRevisedScope(src string) (*scope.Entities, error) {
	dec := yaml.NewDecoder(strings.NewReader(src))
	dec.KnownFields(true)

	var rs RevisedScope
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("parsing revised scope plan: %w", err)
	}

	entities := &scope.Entities{
		Tables:       cleanList(rs.Tables),
		Files:        cleanList(rs.Files),
		Services:     cleanList(rs.Services),
		Dependencies: cleanList(rs.Dependencies),
	}
	if entities.IsEmpty() {
		return nil, fmt.Errorf("revised scope plan names no entities in any category")
	}
	return entities, nil
}

// cleanList trims entries and drops blanks, preserving order. The plan
// is a human override: spellings are taken as written, not re-normalized
// through the extractor.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
