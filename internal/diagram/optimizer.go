package diagram

import (
	"fmt"
	"strings"
)

// Optimization goals recognized by the optimizer.
const (
	GoalReadability = "readability"
	GoalCompactness = "compactness"
	GoalAesthetics  = "aesthetics"
)

// OptimizeInput describes an optimization request.
type OptimizeInput struct {
	Code              string   `json:"code"`
	Goals             []string `json:"goals"`
	PreserveSemantics bool     `json:"preserveSemantics"`
	MaxSuggestions    int      `json:"maxSuggestions"`
}

// HasGoal reports whether a goal is part of the request.
func (in OptimizeInput) HasGoal(goal string) bool {
	for _, g := range in.Goals {
		if g == goal {
			return true
		}
	}
	return false
}

// Suggestion is one improvement the optimizer recommends but did not apply.
type Suggestion struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Impact      string `json:"impact"` // "low", "medium", "high"
}

// OptimizeMetrics summarizes the structure before and after optimization.
type OptimizeMetrics struct {
	NodeCount        int `json:"nodeCount"`
	EdgeCount        int `json:"edgeCount"`
	DuplicateEdges   int `json:"duplicateEdges"`
	LabelledNodes    int `json:"labelledNodes"`
	LongestLabelSize int `json:"longestLabelSize"`
}

// OptimizeResult carries the rewritten code plus everything found on the way.
type OptimizeResult struct {
	OptimizedCode        string          `json:"optimizedCode"`
	Suggestions          []Suggestion    `json:"suggestions"`
	Metrics              OptimizeMetrics `json:"metrics"`
	AppliedOptimizations []string        `json:"appliedOptimizations"`
}

// Optimize rewrites a diagram according to the requested goals: parse into
// the IR, analyze its structure, transform, render back.
func Optimize(in OptimizeInput) (OptimizeResult, error) {
	g, _, err := Parse(in.Code)
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize: %w", err)
	}

	metrics := measure(g)
	var applied []string
	var suggestions []Suggestion

	// Duplicate edges carry no information; dropping them preserves
	// semantics, so it is safe under every goal set.
	if metrics.DuplicateEdges > 0 {
		g.Edges = dedupeEdges(g.Edges)
		applied = append(applied, fmt.Sprintf("removed %d duplicate edge(s)", metrics.DuplicateEdges))
	}

	if in.HasGoal(GoalCompactness) || in.HasGoal(GoalAesthetics) {
		if len(g.Nodes) > 6 && g.Direction != "LR" {
			suggestions = append(suggestions, Suggestion{
				Type:        "layout",
				Description: "switch direction to LR; wide graphs read better horizontally",
				Impact:      "medium",
			})
		}
		if in.HasGoal(GoalCompactness) && !in.PreserveSemantics {
			before := len(g.Edges)
			g.Edges = dropTransitiveEdges(g.Edges)
			if removed := before - len(g.Edges); removed > 0 {
				applied = append(applied, fmt.Sprintf("removed %d transitive edge(s)", removed))
			}
		}
	}

	if in.HasGoal(GoalReadability) {
		for i := range g.Nodes {
			g.Nodes[i].Label = normalizeLabel(g.Nodes[i].Label)
		}
		for _, n := range g.Nodes {
			if len(n.Label) > 40 {
				suggestions = append(suggestions, Suggestion{
					Type:        "readability",
					Description: fmt.Sprintf("label of node %q exceeds 40 characters; consider shortening", n.ID),
					Impact:      "low",
				})
			}
			if n.Label == "" {
				suggestions = append(suggestions, Suggestion{
					Type:        "readability",
					Description: fmt.Sprintf("node %q has no label", n.ID),
					Impact:      "low",
				})
			}
		}
		applied = append(applied, "normalized declaration order: nodes before edges")
	}

	if in.MaxSuggestions > 0 && len(suggestions) > in.MaxSuggestions {
		suggestions = suggestions[:in.MaxSuggestions]
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}

	return OptimizeResult{
		OptimizedCode:        RenderMermaid(g),
		Suggestions:          suggestions,
		Metrics:              metrics,
		AppliedOptimizations: applied,
	}, nil
}

func measure(g *Graph) OptimizeMetrics {
	m := OptimizeMetrics{
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
	}
	for _, n := range g.Nodes {
		if n.Label != "" {
			m.LabelledNodes++
		}
		if len(n.Label) > m.LongestLabelSize {
			m.LongestLabelSize = len(n.Label)
		}
	}
	seen := make(map[string]bool)
	for _, e := range g.Edges {
		key := e.From + "->" + e.To
		if seen[key] {
			m.DuplicateEdges++
		}
		seen[key] = true
	}
	return m
}

func dedupeEdges(edges []Edge) []Edge {
	seen := make(map[string]bool)
	out := edges[:0:0]
	for _, e := range edges {
		key := e.From + "->" + e.To
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// dropTransitiveEdges removes direct edges that are implied by a two-step
// path (A->B->C makes A->C redundant). Label-carrying edges are kept.
func dropTransitiveEdges(edges []Edge) []Edge {
	next := make(map[string][]string)
	for _, e := range edges {
		next[e.From] = append(next[e.From], e.To)
	}

	reachable := func(from, to string) bool {
		for _, mid := range next[from] {
			if mid == to {
				continue
			}
			for _, end := range next[mid] {
				if end == to {
					return true
				}
			}
		}
		return false
	}

	out := edges[:0:0]
	for _, e := range edges {
		if e.Label == "" && reachable(e.From, e.To) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// normalizeLabel collapses internal whitespace in a label.
func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(label), " ")
}
