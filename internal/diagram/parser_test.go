package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		code string
		want Format
	}{
		{"mermaid flowchart", "flowchart TD\n    a --> b", FormatMermaid},
		{"mermaid graph", "graph LR\n    a --> b", FormatMermaid},
		{"plantuml", "@startuml\na --> b\n@enduml", FormatPlantUML},
		{"dot", "digraph G {\n    a -> b;\n}", FormatDOT},
		{"strict dot", "strict digraph G { a -> b; }", FormatDOT},
		{"leading whitespace", "   \n  flowchart TD\n  a --> b", FormatMermaid},
		{"empty", "", FormatUnknown},
		{"prose", "hello world", FormatUnknown},
		{"flowchart without direction", "flowchart\n    a --> b", FormatUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectFormat(tc.code))
		})
	}
}

func TestParseMermaid(t *testing.T) {
	code := `flowchart LR
    a[Start]
    b(Middle)
    c{Choice?}
    a --> b
    b -->|yes| c`

	g, err := ParseMermaid(code)
	require.NoError(t, err)

	assert.Equal(t, "flowchart", g.Kind)
	assert.Equal(t, "LR", g.Direction)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, Node{ID: "a", Label: "Start", Shape: "rect"}, g.Nodes[0])
	assert.Equal(t, Node{ID: "b", Label: "Middle", Shape: "round"}, g.Nodes[1])
	assert.Equal(t, Node{ID: "c", Label: "Choice?", Shape: "diamond"}, g.Nodes[2])

	require.Len(t, g.Edges, 2)
	assert.Equal(t, Edge{From: "a", To: "b"}, g.Edges[0])
	assert.Equal(t, Edge{From: "b", To: "c", Label: "yes"}, g.Edges[1])
}

func TestParseMermaidImplicitNodes(t *testing.T) {
	g, err := ParseMermaid("flowchart TD\n    a --> b\n    a[Start]")
	require.NoError(t, err)

	// The explicit declaration upgrades the implicit edge reference.
	require.True(t, g.HasNode("a"))
	assert.Equal(t, "Start", g.Nodes[0].Label)
	assert.Len(t, g.Nodes, 2)
}

func TestParseMermaidSkipsComments(t *testing.T) {
	g, err := ParseMermaid("flowchart TD\n    %% a comment\n    a --> b")
	require.NoError(t, err)
	assert.Len(t, g.Edges, 1)
}

func TestParseMermaidErrors(t *testing.T) {
	_, err := ParseMermaid("")
	assert.EqualError(t, err, "diagram is empty")

	_, err = ParseMermaid("flowchart TD\n    a --> b\n    !!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestParsePlantUML(t *testing.T) {
	code := `@startuml
a --> b
b --> c : done
@enduml`

	g, err := ParsePlantUML(code)
	require.NoError(t, err)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, Edge{From: "b", To: "c", Label: "done"}, g.Edges[1])
	assert.Len(t, g.Nodes, 3)
}

func TestParsePlantUMLMissingTerminator(t *testing.T) {
	_, err := ParsePlantUML("@startuml\na --> b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "@enduml")
}

func TestParseDOT(t *testing.T) {
	code := `digraph G {
    a [label="Start"];
    a -> b;
    b -> c [label="finish"];
}`

	g, err := ParseDOT(code)
	require.NoError(t, err)
	assert.Equal(t, "Start", g.Nodes[0].Label)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, Edge{From: "b", To: "c", Label: "finish"}, g.Edges[1])
}

func TestParseDOTMissingBraces(t *testing.T) {
	_, err := ParseDOT("digraph G")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "braces")
}

func TestParseDispatch(t *testing.T) {
	g, format, err := Parse("flowchart TD\n    a --> b")
	require.NoError(t, err)
	assert.Equal(t, FormatMermaid, format)
	assert.Len(t, g.Edges, 1)

	_, format, err = Parse("nonsense")
	require.Error(t, err)
	assert.Equal(t, FormatUnknown, format)
}

func TestRenderMermaidRoundTrip(t *testing.T) {
	code := "flowchart LR\n    a[Start]\n    b{OK?}\n    a -->|go| b"

	g, err := ParseMermaid(code)
	require.NoError(t, err)

	rendered := RenderMermaid(g)
	again, err := ParseMermaid(rendered)
	require.NoError(t, err)
	assert.Equal(t, g.Nodes, again.Nodes)
	assert.Equal(t, g.Edges, again.Edges)
}

func TestRenderPlantUML(t *testing.T) {
	g := &Graph{Edges: []Edge{{From: "a", To: "b"}, {From: "b", To: "c", Label: "done"}}}
	out := RenderPlantUML(g)
	assert.Equal(t, "@startuml\na --> b\nb --> c : done\n@enduml", out)
}

func TestRenderDOT(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a", Label: "Start"}},
		Edges: []Edge{{From: "a", To: "b"}},
	}
	out := RenderDOT(g)
	assert.Contains(t, out, "digraph G {")
	assert.Contains(t, out, `a [label="Start"];`)
	assert.Contains(t, out, "a -> b;")
}
