package diagram

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of validating diagram code.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Error       string   `json:"error,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Validate checks diagram code for syntactic and semantic problems.
// In strict mode, semantic warnings fail the validation instead of only
// producing suggestions.
func Validate(code string, strict bool) ValidationResult {
	if strings.TrimSpace(code) == "" {
		return ValidationResult{
			Valid:       false,
			Error:       "diagram is empty",
			Suggestions: []string{"provide diagram code, e.g. \"flowchart TD\" followed by nodes and edges"},
		}
	}

	g, format, err := Parse(code)
	if err != nil {
		result := ValidationResult{Valid: false, Error: err.Error()}
		if format == FormatUnknown {
			result.Suggestions = []string{"start with a recognized header: flowchart/graph (mermaid), @startuml, or digraph"}
		}
		return result
	}

	warnings := analyzeGraph(g)
	if strict && len(warnings) > 0 {
		return ValidationResult{
			Valid:       false,
			Error:       fmt.Sprintf("%d semantic issue(s) found", len(warnings)),
			Suggestions: warnings,
		}
	}
	return ValidationResult{Valid: true, Suggestions: warnings}
}

// analyzeGraph runs the semantic checks over the parsed IR.
func analyzeGraph(g *Graph) []string {
	var warnings []string

	seen := make(map[string]int)
	for _, n := range g.Nodes {
		seen[n.ID]++
	}
	for id, count := range seen {
		if count > 1 {
			warnings = append(warnings, fmt.Sprintf("node %q is declared %d times", id, count))
		}
	}

	connected := make(map[string]bool)
	for _, e := range g.Edges {
		connected[e.From] = true
		connected[e.To] = true
	}
	if len(g.Edges) > 0 {
		for _, n := range g.Nodes {
			if !connected[n.ID] {
				warnings = append(warnings, fmt.Sprintf("node %q is not connected to any other node", n.ID))
			}
		}
	}

	edgeSeen := make(map[string]bool)
	for _, e := range g.Edges {
		key := e.From + "->" + e.To
		if edgeSeen[key] {
			warnings = append(warnings, fmt.Sprintf("duplicate edge %s", key))
		}
		edgeSeen[key] = true
	}

	return warnings
}
