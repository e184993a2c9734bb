package llm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{
			name:  "plain JSON",
			input: `{"priorities": ["A", "B"]}`,
			want:  map[string]any{"priorities": []any{"A", "B"}},
		},
		{
			name:  "surrounding whitespace",
			input: "\n\n  {\"completion_rate\": 0.5}  \n",
			want:  map[string]any{"completion_rate": 0.5},
		},
		{
			name:  "fenced with prose",
			input: "Sure! Here's your plan:\n```json\n{\"priorities\":[\"A\",\"B\",\"C\"]}\n```\nLet me know!",
			want:  map[string]any{"priorities": []any{"A", "B", "C"}},
		},
		{
			name:  "prose without fence",
			input: `Based on the week, here is my analysis: {"deviation_detected": true, "recommended_action": "adjust"} Hope this helps.`,
			want:  map[string]any{"deviation_detected": true, "recommended_action": "adjust"},
		},
		{
			name:  "braces inside strings",
			input: `Result -> {"action": "Write }{ carefully", "nested": {"n": 1}} trailing } text`,
			want:  map[string]any{"action": "Write }{ carefully", "nested": map[string]any{"n": 1.0}},
		},
		{
			name:  "escaped quotes inside strings",
			input: `Output: {"action": "Say \"done}\" aloud", "x": 2}`,
			want:  map[string]any{"action": `Say "done}" aloud`, "x": 2.0},
		},
		{
			name:  "unicode in values preserved",
			input: `Plan: {"action": "Café run – easy"} ok`,
			want:  map[string]any{"action": "Café run – easy"},
		},
		{
			name:  "non-ASCII contamination between tokens",
			input: "Here: {\"a\": 1,\u00a0\"b\": 2\u200b}",
			want:  map[string]any{"a": 1.0, "b": 2.0},
		},
		{
			name:  "comments and trailing commas",
			input: "```json\n{\n  \"excluded\": [\n    \"Racing\",  // not this block\n    \"Hills\",\n  ]\n}\n```",
			want:  map[string]any{"excluded": []any{"Racing", "Hills"}},
		},
		{
			name:  "stray brace before json fence",
			input: "Use {curly braces} wisely.\n```json\n{\"a\": 1}\n```",
			want:  map[string]any{"a": 1.0},
		},
		{
			name:  "stray brace before untagged fence",
			input: "Template {x} below\n```\n{\"b\": true}\n```",
			want:  map[string]any{"b": true},
		},
		{
			name:  "bare list wrapped as daily actions",
			input: `[{"day": "Mon", "action": "Rest", "time_estimate_minutes": 0}]`,
			want: map[string]any{"daily_actions": []any{
				map[string]any{"day": "Mon", "action": "Rest", "time_estimate_minutes": 0.0},
			}},
		},
		{
			name:  "list after unparseable braces",
			input: `Plan {v2}: [{"day": "Tue", "action": "Run", "time_estimate_minutes": 30}] done`,
			want: map[string]any{"daily_actions": []any{
				map[string]any{"day": "Tue", "action": "Run", "time_estimate_minutes": 30.0},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractObject(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractObject() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractObject_Failures(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"no json here at all",
		`{"priorities": ["A"`,
		"```json\n{broken\n```",
		"42",
		`"just a string"`,
		"}{][",
		"```",
		"```json",
	}

	for _, in := range inputs {
		got := ExtractObject(in)
		require.NotNil(t, got, "input %q", in)
		assert.Empty(t, got, "input %q", in)
	}
}

func TestExtractObject_FirstSuccessWins(t *testing.T) {
	// The first balanced object wins over a later fenced block.
	got := ExtractObject("{\"first\": 1}\n```json\n{\"second\": 2}\n```")
	assert.Equal(t, map[string]any{"first": 1.0}, got)
}

func TestMatchDelimiter(t *testing.T) {
	end, ok := matchDelimiter(`x{"a":{"b":"}"}}y`, 1, '{', '}')
	require.True(t, ok)
	assert.Equal(t, 15, end)

	_, ok = matchDelimiter(`{"a": 1`, 0, '{', '}')
	assert.False(t, ok)
}

func TestFencedBlocks(t *testing.T) {
	blocks := fencedBlocks("a\n```JSON\n{\"a\":1}\n```\nb\n```go\nfunc(){}\n```\n```{\"c\":3}```")
	require.Len(t, blocks, 3)
	assert.Equal(t, fencedBlock{lang: "json", body: `{"a":1}`}, blocks[0])
	assert.Equal(t, fencedBlock{lang: "go", body: "func(){}"}, blocks[1])
	assert.Equal(t, fencedBlock{lang: "", body: `{"c":3}`}, blocks[2])
}

func TestPrintableASCII(t *testing.T) {
	assert.Equal(t, "a\tb\nc", printableASCII("a\tb\ncé\x01"))
}

func TestStripLineComment(t *testing.T) {
	assert.Equal(t, `"Easy run",`, stripLineComment(`"Easy run",   // recovery`))
	assert.Equal(t, `"url": "http://example.com"`, stripLineComment(`"url": "http://example.com"`))
}

func TestDecodeInto(t *testing.T) {
	var out struct {
		Day     string `json:"day"`
		Minutes int    `json:"time_estimate_minutes"`
	}
	err := DecodeInto(map[string]any{"day": "Mon", "time_estimate_minutes": 45.0}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Mon", out.Day)
	assert.Equal(t, 45, out.Minutes)

	err = DecodeInto(map[string]any{"time_estimate_minutes": "soon"}, &out)
	assert.Error(t, err)
}
