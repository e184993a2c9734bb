package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/execoach/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadFixtures_Sequential(t *testing.T) {
	fsys := fstest.MapFS{
		"mock-reviewer.2.json": {Data: []byte(`{"recommended_action":"recommit"}`)},
		"mock-reviewer.1.txt":  {Data: []byte("Prose first\n```json\n{\"recommended_action\":\"adjust\"}\n```\n")},
		"mock-reviewer.json":   {Data: []byte(`{"summary":"fallback"}`)},
		"mock-planner.json":    {Data: []byte(`{"priorities":[]}`)},
		"README.md":            {Data: []byte("ignored")},
	}

	fixtures, err := loadFixtures(fsys)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	seq := fixtures["mock-reviewer"]
	require.Len(t, seq, 3)
	assert.Contains(t, seq[0], "adjust")
	assert.Contains(t, seq[1], "recommit")
	assert.Contains(t, seq[2], "fallback")
	assert.Equal(t, []string{`{"priorities":[]}`}, fixtures["mock-planner"])
}

func TestLoadFixtures_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{"invalid json", fstest.MapFS{"mock-planner.json": {Data: []byte(`{not json`)}}, "invalid JSON"},
		{"txt is not validated", fstest.MapFS{"mock-planner.txt": {Data: []byte(`{not json`)}}, ""},
		{"duplicate base", fstest.MapFS{
			"mock-planner.json": {Data: []byte(`{}`)},
			"mock-planner.txt":  {Data: []byte(`{}`)},
		}, "duplicate base fixture"},
		{"empty", fstest.MapFS{"notes.md": {Data: []byte("x")}}, "no fixture files found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFixtures(tt.fsys)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestEmbeddedFixturesAreExtractable(t *testing.T) {
	fixtures, err := embeddedFixtures()
	require.NoError(t, err)

	for _, model := range []string{"mock-planner", "mock-reviewer", "mock-adjuster"} {
		seq, ok := fixtures[model]
		require.True(t, ok, model)
		for i, content := range seq {
			assert.NotEmpty(t, llm.ExtractObject(content), "%s fixture %d", model, i)
		}
	}
	assert.Len(t, fixtures["mock-adjuster"], 2)

	plan := llm.ExtractObject(fixtures["mock-planner"][0])
	assert.Len(t, plan["daily_actions"], 7)
}

func postChat(t *testing.T, url, model string) (*http.Response, chatResponse) {
	t.Helper()
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "system", Content: "You are a coach."}, {Role: "user", Content: "Plan my week."}},
	})
	require.NoError(t, err)

	resp, err := http.Post(url+"/v1/chat/completions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out chatResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestChatCompletions_SequenceThenRepeat(t *testing.T) {
	s := newServer(map[string][]string{"mock-reviewer": {"first", "second", "base"}}, quietLogger())
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	var got []string
	for range 5 {
		resp, out := postChat(t, ts.URL, "mock-reviewer")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, out.Choices, 1)
		assert.Equal(t, "mock-reviewer", out.Model)
		assert.Equal(t, "stop", out.Choices[0].FinishReason)
		got = append(got, out.Choices[0].Message.Content)
	}
	assert.Equal(t, []string{"first", "second", "base", "base", "base"}, got)
}

func TestChatCompletions_PrefixFallbackAndUnknown(t *testing.T) {
	s := newServer(map[string][]string{"planner": {"plan"}}, quietLogger())
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, out := postChat(t, ts.URL, "mock-planner")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "plan", out.Choices[0].Message.Content)

	resp, _ = postChat(t, ts.URL, "gpt-4")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsRequestsAndReset(t *testing.T) {
	s := newServer(map[string][]string{"mock-planner": {"a"}, "mock-reviewer": {"b"}}, quietLogger())
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	postChat(t, ts.URL, "mock-planner")
	postChat(t, ts.URL, "mock-planner")
	postChat(t, ts.URL, "mock-reviewer")

	getJSON := func(path string, v any) int {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		if v != nil && resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
		}
		return resp.StatusCode
	}

	var stats struct {
		TotalCalls   int64          `json:"total_calls"`
		CallsByModel map[string]int `json:"calls_by_model"`
	}
	require.Equal(t, http.StatusOK, getJSON("/stats", &stats))
	assert.Equal(t, int64(3), stats.TotalCalls)
	assert.Equal(t, map[string]int{"mock-planner": 2, "mock-reviewer": 1}, stats.CallsByModel)

	var captured struct {
		RequestsByModel map[string][]capturedRequest `json:"requests_by_model"`
	}
	require.Equal(t, http.StatusOK, getJSON("/requests?model=mock-planner&call=2", &captured))
	require.Len(t, captured.RequestsByModel["mock-planner"], 1)
	assert.Equal(t, 2, captured.RequestsByModel["mock-planner"][0].CallIndex)
	assert.Equal(t, "Plan my week.", captured.RequestsByModel["mock-planner"][0].Messages[1].Content)
	assert.NotContains(t, captured.RequestsByModel, "mock-reviewer")

	assert.Equal(t, http.StatusBadRequest, getJSON("/requests?call=zero", nil))

	var models struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.Equal(t, http.StatusOK, getJSON("/v1/models", &models))
	require.Len(t, models.Data, 2)
	assert.Equal(t, "mock-planner", models.Data[0].ID)

	resp, err := http.Post(ts.URL+"/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var after struct {
		TotalCalls   int64          `json:"total_calls"`
		CallsByModel map[string]int `json:"calls_by_model"`
	}
	require.Equal(t, http.StatusOK, getJSON("/stats", &after))
	assert.Equal(t, int64(0), after.TotalCalls)
	assert.Empty(t, after.CallsByModel)
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(newServer(map[string][]string{"m": {"x"}}, quietLogger()).routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
