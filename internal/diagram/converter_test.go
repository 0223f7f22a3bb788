package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, FormatDOT, ResolveTarget(FormatDOT, FormatMermaid))
	assert.Equal(t, FormatPlantUML, ResolveTarget(FormatAuto, FormatMermaid))
	assert.Equal(t, FormatMermaid, ResolveTarget(FormatAuto, FormatPlantUML))
	assert.Equal(t, FormatMermaid, ResolveTarget(FormatAuto, FormatDOT))
}

func TestConvertMermaidToPlantUML(t *testing.T) {
	out, err := Convert("flowchart TD\n    a --> b\n    b -->|done| c", FormatPlantUML, false)
	require.NoError(t, err)
	assert.Equal(t, "@startuml\na --> b\nb --> c : done\n@enduml", out)
}

func TestConvertPlantUMLToMermaid(t *testing.T) {
	out, err := Convert("@startuml\na --> b : go\n@enduml", FormatMermaid, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "flowchart TD"))
	assert.Contains(t, out, "a -->|go| b")
}

func TestConvertDOTToMermaid(t *testing.T) {
	out, err := Convert("digraph G {\n    a [label=\"Start\"];\n    a -> b;\n}", FormatMermaid, false)
	require.NoError(t, err)
	assert.Contains(t, out, "a[Start]")
	assert.Contains(t, out, "a --> b")
}

func TestConvertAutoTarget(t *testing.T) {
	out, err := Convert("flowchart TD\n    a --> b", FormatAuto, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "@startuml"))

	out, err = Convert("@startuml\na --> b\n@enduml", FormatAuto, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "flowchart"))
}

func TestConvertOptimizeStructure(t *testing.T) {
	code := "flowchart TD\n    a --> b\n    a --> b"

	out, err := Convert(code, FormatPlantUML, false)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "a --> b"))

	out, err = Convert(code, FormatPlantUML, true)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "a --> b"))
}

func TestConvertUnknownSource(t *testing.T) {
	_, err := Convert("nope", FormatMermaid, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "convert:")
}

func TestConvertUnsupportedTarget(t *testing.T) {
	_, err := Convert("flowchart TD\n    a --> b", Format("svg"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target")
}

func TestConvertRoundTrip(t *testing.T) {
	original := "flowchart TD\n    a --> b\n    b -->|done| c"

	uml, err := Convert(original, FormatPlantUML, false)
	require.NoError(t, err)
	back, err := Convert(uml, FormatMermaid, false)
	require.NoError(t, err)

	g1, _, err := Parse(original)
	require.NoError(t, err)
	g2, _, err := Parse(back)
	require.NoError(t, err)
	assert.Equal(t, g1.Edges, g2.Edges)
}
