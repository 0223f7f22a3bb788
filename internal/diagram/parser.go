// Package diagram implements the diagram collaborators consumed by the
// operation drivers: validation, optimization, template selection and
// cross-format conversion. All entry points are synchronous pure functions
// built as parse -> analyze -> transform pipelines over a shared
// intermediate graph representation.
package diagram

import (
	"fmt"
	"regexp"
	"strings"
)

// Format identifies a supported diagram text format.
type Format string

const (
	FormatMermaid  Format = "mermaid"
	FormatPlantUML Format = "plantuml"
	FormatDOT      Format = "dot"
	FormatAuto     Format = "auto"
	FormatUnknown  Format = ""
)

// Node is one vertex of the intermediate representation.
type Node struct {
	ID    string
	Label string
	Shape string // "rect", "round", "diamond"
}

// Edge is one directed connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph is the explicit intermediate structure every pipeline works on.
type Graph struct {
	Kind      string // "flowchart"
	Direction string // "TD", "LR", ...
	Nodes     []Node
	Edges     []Edge
}

// HasNode reports whether a node id is declared or referenced.
func (g *Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func (g *Graph) addNode(n Node) {
	for i, existing := range g.Nodes {
		if existing.ID == n.ID {
			// Explicit declarations win over implicit edge references.
			if n.Label != "" && existing.Label == "" {
				g.Nodes[i] = n
			}
			return
		}
	}
	g.Nodes = append(g.Nodes, n)
}

// DetectFormat inspects structural markers to identify the source format.
func DetectFormat(code string) Format {
	trimmed := strings.TrimSpace(code)
	switch {
	case trimmed == "":
		return FormatUnknown
	case strings.HasPrefix(trimmed, "@startuml"):
		return FormatPlantUML
	case strings.HasPrefix(trimmed, "digraph") || strings.HasPrefix(trimmed, "strict digraph"):
		return FormatDOT
	case mermaidHeader.MatchString(trimmed):
		return FormatMermaid
	default:
		return FormatUnknown
	}
}

var (
	mermaidHeader = regexp.MustCompile(`^(flowchart|graph)\s+(TD|TB|LR|RL|BT)\b`)

	// A[Label], B(Label), C{Label}
	mermaidNode = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)(\[([^\]]*)\]|\(([^)]*)\)|\{([^}]*)\})$`)

	// A --> B, A ---|label| B, A -->|label| B
	mermaidEdge = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\s*--[->]\s*(\|([^|]*)\|\s*)?([A-Za-z][A-Za-z0-9_]*)$`)

	plantumlEdge = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\s*-+>\s*([A-Za-z][A-Za-z0-9_]*)\s*(?::\s*(.*))?$`)

	dotEdge = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\s*->\s*([A-Za-z][A-Za-z0-9_]*)\s*(\[label="([^"]*)"\])?;?$`)
	dotNode = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\s*\[label="([^"]*)"\];?$`)
)

// Parse detects the format and parses the code into the graph IR.
func Parse(code string) (*Graph, Format, error) {
	format := DetectFormat(code)
	var (
		g   *Graph
		err error
	)
	switch format {
	case FormatMermaid:
		g, err = ParseMermaid(code)
	case FormatPlantUML:
		g, err = ParsePlantUML(code)
	case FormatDOT:
		g, err = ParseDOT(code)
	default:
		return nil, FormatUnknown, fmt.Errorf("unrecognized diagram format")
	}
	if err != nil {
		return nil, format, err
	}
	return g, format, nil
}

// ParseMermaid parses a flowchart-style mermaid diagram.
func ParseMermaid(code string) (*Graph, error) {
	lines := nonEmptyLines(code)
	if len(lines) == 0 {
		return nil, fmt.Errorf("diagram is empty")
	}

	header := mermaidHeader.FindStringSubmatch(lines[0].text)
	if header == nil {
		return nil, fmt.Errorf("line %d: expected flowchart header, got %q", lines[0].number, lines[0].text)
	}
	g := &Graph{Kind: "flowchart", Direction: header[2]}

	for _, line := range lines[1:] {
		switch {
		case mermaidEdge.MatchString(line.text):
			m := mermaidEdge.FindStringSubmatch(line.text)
			g.addNode(Node{ID: m[1], Shape: "rect"})
			g.addNode(Node{ID: m[4], Shape: "rect"})
			g.Edges = append(g.Edges, Edge{From: m[1], To: m[4], Label: m[3]})
		case mermaidNode.MatchString(line.text):
			m := mermaidNode.FindStringSubmatch(line.text)
			node := Node{ID: m[1]}
			switch {
			case m[3] != "" || strings.HasPrefix(m[2], "["):
				node.Label, node.Shape = m[3], "rect"
			case m[4] != "" || strings.HasPrefix(m[2], "("):
				node.Label, node.Shape = m[4], "round"
			default:
				node.Label, node.Shape = m[5], "diamond"
			}
			g.addNode(node)
		default:
			return nil, fmt.Errorf("line %d: cannot parse %q", line.number, line.text)
		}
	}
	return g, nil
}

// ParsePlantUML parses a minimal activity-style PlantUML diagram.
func ParsePlantUML(code string) (*Graph, error) {
	lines := nonEmptyLines(code)
	if len(lines) < 2 {
		return nil, fmt.Errorf("diagram is empty")
	}
	if lines[0].text != "@startuml" {
		return nil, fmt.Errorf("line %d: expected @startuml", lines[0].number)
	}
	if lines[len(lines)-1].text != "@enduml" {
		return nil, fmt.Errorf("missing @enduml terminator")
	}

	g := &Graph{Kind: "flowchart", Direction: "TD"}
	for _, line := range lines[1 : len(lines)-1] {
		m := plantumlEdge.FindStringSubmatch(line.text)
		if m == nil {
			return nil, fmt.Errorf("line %d: cannot parse %q", line.number, line.text)
		}
		g.addNode(Node{ID: m[1], Shape: "rect"})
		g.addNode(Node{ID: m[2], Shape: "rect"})
		g.Edges = append(g.Edges, Edge{From: m[1], To: m[2], Label: strings.TrimSpace(m[3])})
	}
	return g, nil
}

// ParseDOT parses a minimal graphviz digraph.
func ParseDOT(code string) (*Graph, error) {
	trimmed := strings.TrimSpace(code)
	open := strings.Index(trimmed, "{")
	close_ := strings.LastIndex(trimmed, "}")
	if open < 0 || close_ < open {
		return nil, fmt.Errorf("digraph body braces not found")
	}

	g := &Graph{Kind: "flowchart", Direction: "TD"}
	for _, line := range nonEmptyLines(trimmed[open+1 : close_]) {
		switch {
		case dotEdge.MatchString(line.text):
			m := dotEdge.FindStringSubmatch(line.text)
			g.addNode(Node{ID: m[1], Shape: "rect"})
			g.addNode(Node{ID: m[2], Shape: "rect"})
			g.Edges = append(g.Edges, Edge{From: m[1], To: m[2], Label: m[4]})
		case dotNode.MatchString(line.text):
			m := dotNode.FindStringSubmatch(line.text)
			g.addNode(Node{ID: m[1], Label: m[2], Shape: "rect"})
		default:
			return nil, fmt.Errorf("cannot parse %q", line.text)
		}
	}
	return g, nil
}

type sourceLine struct {
	number int
	text   string
}

func nonEmptyLines(code string) []sourceLine {
	var out []sourceLine
	for i, raw := range strings.Split(code, "\n") {
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "%%") || strings.HasPrefix(text, "//") || strings.HasPrefix(text, "'") {
			continue
		}
		out = append(out, sourceLine{number: i + 1, text: text})
	}
	return out
}
