package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid serializes the IR as a mermaid flowchart.
func RenderMermaid(g *Graph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "flowchart %s\n", directionOrDefault(g))
	for _, n := range g.Nodes {
		if n.Label == "" {
			continue
		}
		switch n.Shape {
		case "round":
			fmt.Fprintf(&b, "    %s(%s)\n", n.ID, n.Label)
		case "diamond":
			fmt.Fprintf(&b, "    %s{%s}\n", n.ID, n.Label)
		default:
			fmt.Fprintf(&b, "    %s[%s]\n", n.ID, n.Label)
		}
	}
	for _, e := range g.Edges {
		if e.Label != "" {
			fmt.Fprintf(&b, "    %s -->|%s| %s\n", e.From, e.Label, e.To)
		} else {
			fmt.Fprintf(&b, "    %s --> %s\n", e.From, e.To)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RenderPlantUML serializes the IR as a PlantUML diagram.
func RenderPlantUML(g *Graph) string {
	var b strings.Builder
	b.WriteString("@startuml\n")
	for _, e := range g.Edges {
		if e.Label != "" {
			fmt.Fprintf(&b, "%s --> %s : %s\n", e.From, e.To, e.Label)
		} else {
			fmt.Fprintf(&b, "%s --> %s\n", e.From, e.To)
		}
	}
	b.WriteString("@enduml")
	return b.String()
}

// RenderDOT serializes the IR as a graphviz digraph.
func RenderDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	for _, n := range g.Nodes {
		if n.Label != "" {
			fmt.Fprintf(&b, "    %s [label=\"%s\"];\n", n.ID, n.Label)
		}
	}
	for _, e := range g.Edges {
		if e.Label != "" {
			fmt.Fprintf(&b, "    %s -> %s [label=\"%s\"];\n", e.From, e.To, e.Label)
		} else {
			fmt.Fprintf(&b, "    %s -> %s;\n", e.From, e.To)
		}
	}
	b.WriteString("}")
	return b.String()
}

func directionOrDefault(g *Graph) string {
	if g.Direction == "" {
		return "TD"
	}
	return g.Direction
}
