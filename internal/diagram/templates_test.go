package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesCatalogParses(t *testing.T) {
	// Every shipped template must be valid under strict validation.
	for _, tpl := range Templates() {
		t.Run(tpl.ID, func(t *testing.T) {
			result := Validate(tpl.Code, true)
			assert.True(t, result.Valid, "template %s: %s", tpl.ID, result.Error)
		})
	}
}

func TestSelectTemplatesEmptyFilterMatchesAll(t *testing.T) {
	assert.Len(t, SelectTemplates(TemplateFilter{}), len(Templates()))
}

func TestSelectTemplatesByFields(t *testing.T) {
	process := SelectTemplates(TemplateFilter{UseCase: "process"})
	require.Len(t, process, 3)
	for _, tpl := range process {
		assert.Equal(t, "process", tpl.UseCase)
	}

	simple := SelectTemplates(TemplateFilter{UseCase: "process", Complexity: "simple"})
	require.Len(t, simple, 1)
	assert.Equal(t, "linear-process", simple[0].ID)

	assert.Empty(t, SelectTemplates(TemplateFilter{Type: "sequence"}))
}

func TestSelectTemplatesCaseInsensitive(t *testing.T) {
	matched := SelectTemplates(TemplateFilter{UseCase: "Architecture", Complexity: "MEDIUM"})
	require.Len(t, matched, 1)
	assert.Equal(t, "event-pipeline", matched[0].ID)
}

func TestTemplatesReturnsCopy(t *testing.T) {
	first := Templates()
	first[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Templates()[0].Name)
}
