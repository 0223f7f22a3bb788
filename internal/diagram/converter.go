package diagram

import "fmt"

// ResolveTarget maps the "auto" pseudo-format to a concrete target given the
// detected source format: mermaid sources convert to PlantUML, everything
// else converts to mermaid.
func ResolveTarget(target, source Format) Format {
	if target != FormatAuto {
		return target
	}
	if source == FormatMermaid {
		return FormatPlantUML
	}
	return FormatMermaid
}

// Convert translates diagram code into the target format via the IR.
// Target may be "auto". With optimizeStructure set, duplicate edges are
// dropped before rendering.
func Convert(code string, target Format, optimizeStructure bool) (string, error) {
	g, source, err := Parse(code)
	if err != nil {
		return "", fmt.Errorf("convert: %w", err)
	}

	resolved := ResolveTarget(target, source)

	if optimizeStructure {
		g.Edges = dedupeEdges(g.Edges)
	}

	switch resolved {
	case FormatMermaid:
		return RenderMermaid(g), nil
	case FormatPlantUML:
		return RenderPlantUML(g), nil
	case FormatDOT:
		return RenderDOT(g), nil
	default:
		return "", fmt.Errorf("convert: unsupported target format %q", resolved)
	}
}
