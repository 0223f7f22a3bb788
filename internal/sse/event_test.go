package sse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSimpleStringData(t *testing.T) {
	out, err := Format(Event{Event: "test", Data: "simple data"})
	require.NoError(t, err)
	assert.Equal(t, "event: test\ndata: simple data\n\n", out)
}

func TestFormatWithIDAndRetry(t *testing.T) {
	retry := 3000
	out, err := Format(Event{ID: "ev-42", Event: "heartbeat", Data: "ok", Retry: &retry})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id: ev-42", lines[0])
	assert.Equal(t, "event: heartbeat", lines[1])
	assert.Equal(t, "data: ok", lines[2])
	assert.Equal(t, "retry: 3000", lines[3])
}

func TestFormatObjectData(t *testing.T) {
	out, err := Format(Event{Event: "result", Data: map[string]int{"count": 7}})
	require.NoError(t, err)
	assert.Equal(t, "event: result\ndata: {\"count\":7}\n\n", out)
}

func TestFormatMultiLineData(t *testing.T) {
	out, err := Format(Event{Event: "test", Data: "line one\nline two\nline three"})
	require.NoError(t, err)
	assert.Equal(t, "event: test\ndata: line one\ndata: line two\ndata: line three\n\n", out)

	// All segments live under a single blank-line terminator.
	assert.Equal(t, 1, strings.Count(out, "\n\n"))
}

func TestFormatRejectsUnencodableData(t *testing.T) {
	_, err := Format(Event{Event: "test", Data: func() {}})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	negative := -1
	zero := 0
	retry := 250

	cases := []struct {
		name  string
		event Event
		want  bool
	}{
		{"minimal valid", Event{Event: "test", Data: "x"}, true},
		{"all fields valid", Event{ID: "a", Event: "test", Data: map[string]string{}, Retry: &retry}, true},
		{"zero retry valid", Event{Event: "test", Data: "x", Retry: &zero}, true},
		{"missing event", Event{Data: "x"}, false},
		{"missing data", Event{Event: "test"}, false},
		{"negative retry", Event{Event: "test", Data: "x", Retry: &negative}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Validate(tc.event))
		})
	}
}

func TestOperationEventNames(t *testing.T) {
	assert.Equal(t, "validation_start", OpValidation.StartEvent())
	assert.Equal(t, "optimization_progress", OpOptimization.ProgressEvent())
	assert.Equal(t, "template_complete", OpTemplate.CompleteEvent())
	assert.Equal(t, "format_conversion_complete", OpFormatConversion.CompleteEvent())
}
