package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmpty(t *testing.T) {
	result := Validate("", false)
	require.False(t, result.Valid)
	assert.Equal(t, "diagram is empty", result.Error)
	assert.NotEmpty(t, result.Suggestions)

	result = Validate("   \n\t  ", false)
	assert.False(t, result.Valid)
}

func TestValidateUnknownFormat(t *testing.T) {
	result := Validate("just some prose", false)
	require.False(t, result.Valid)
	require.Len(t, result.Suggestions, 1)
	assert.Contains(t, result.Suggestions[0], "flowchart")
}

func TestValidateCleanDiagram(t *testing.T) {
	result := Validate("flowchart TD\n    a[Start]\n    b[End]\n    a --> b", false)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Suggestions)
	assert.Empty(t, result.Error)
}

func TestValidateWarnings(t *testing.T) {
	// orphan is declared but never connected; a -> b appears twice.
	code := "flowchart TD\n    orphan[Alone]\n    a --> b\n    a --> b"

	result := Validate(code, false)
	assert.True(t, result.Valid, "warnings do not fail lenient validation")
	assert.Len(t, result.Suggestions, 2)

	strict := Validate(code, true)
	require.False(t, strict.Valid)
	assert.Equal(t, "2 semantic issue(s) found", strict.Error)
	assert.Equal(t, result.Suggestions, strict.Suggestions)
}

func TestValidateSyntaxError(t *testing.T) {
	result := Validate("flowchart TD\n    ???", true)
	require.False(t, result.Valid)
	assert.Contains(t, result.Error, "line 2")
	assert.Empty(t, result.Suggestions, "format suggestion only applies to unknown formats")
}
