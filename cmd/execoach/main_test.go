package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/execoach/coach"
	"github.com/c360studio/execoach/config"
	"github.com/c360studio/execoach/llm"
)

// fakeModel is an OpenAI-compatible endpoint that replies from a queue.
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (f *fakeModel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content := "no more replies"
	if f.calls < len(f.replies) {
		content = f.replies[f.calls]
	}
	f.calls++
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": "gpt-test",
		"choices": []map[string]any{{
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
	})
}

func weekReply() string {
	var actions []string
	for _, d := range coach.Days {
		actions = append(actions, fmt.Sprintf(`{"day": %q, "action": "Train %s", "time_estimate_minutes": 45}`, d, d))
	}
	return "```json\n{\"priorities\": [\"Aerobic base\"], \"excluded\": [\"Speed work\"], " +
		"\"trade_off_rationale\": \"Knee first\", \"assumptions\": [], \"daily_actions\": [" +
		strings.Join(actions, ", ") + "]}\n```"
}

type cliEnv struct {
	configPath string
	dataDir    string
	model      *fakeModel
}

func setupCLI(t *testing.T, replies ...string) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	model := &fakeModel{replies: replies}
	server := httptest.NewServer(model)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	configPath := filepath.Join(dir, "execoach.yaml")
	content := fmt.Sprintf(`
model:
  provider: openai
  name: gpt-test
  endpoint: %s/v1
  api_key: sk-test
  timeout: 10s
storage:
  data_dir: %s
log:
  level: error
`, server.URL, dataDir)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	return &cliEnv{configPath: configPath, dataDir: dataDir, model: model}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd(&out, io.Discard)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "execoach version 0.1.0 (build: dev)\n", out.String())
}

func TestInvalidConfigFile(t *testing.T) {
	env := setupCLI(t)
	require.NoError(t, os.WriteFile(env.configPath, []byte("model:\n  provider: bard\n"), 0644))

	_, err := env.run(t, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.provider")
}

func TestReset_RequiresConfirmation(t *testing.T) {
	env := setupCLI(t)
	_, err := env.run(t, "reset")
	assert.EqualError(t, err, "refusing to delete all data without --yes")
}

func TestPlanShow_NoPlans(t *testing.T) {
	env := setupCLI(t)
	_, err := env.run(t, "plan", "show")
	assert.ErrorContains(t, err, "no plan found")
}

func TestGenerate_RequiresProfile(t *testing.T) {
	env := setupCLI(t, weekReply())
	_, err := env.run(t, "plan", "generate")
	assert.ErrorIs(t, err, coach.ErrProfileRequired)
	assert.Equal(t, 0, env.model.calls)
}

func TestWeeklyLoop(t *testing.T) {
	env := setupCLI(t,
		weekReply(),
		`{"deviation_detected": true, "completion_rate": 0.29, "deviation_summary": "Sick midweek", "confidence_score": 0.8, "recommended_action": "adjust"}`,
		`{"daily_actions": [{"day": "Mon", "action": "Ignored", "time_estimate_minutes": 1}, {"day": "Sat", "action": "Easy walk", "time_estimate_minutes": 30}]}`,
	)

	profilePath := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(profilePath, []byte(`{
		"objective_description": "Run a sub-4 marathon",
		"duration_weeks": 16,
		"available_hours_per_week": 6,
		"physical_constraints": ["Sore left knee"],
		"minimum_training_frequency": 3,
		"rest_days": ["sun"]
	}`), 0644))

	out, err := env.run(t, "profile", "set", "-f", profilePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Objective obj_001 (v1)")

	out, err = env.run(t, "profile", "show", "--json")
	require.NoError(t, err)
	var profile coach.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, []string{"Sun"}, profile.NonNegotiables.RestDays)

	out, err = env.run(t, "plan", "generate", "--week-start", "2025-10-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Week 2025-W42")
	assert.Contains(t, out, "Train Wed")

	out, err = env.run(t, "plan", "complete", "--week", "2025-W42", "--day", "mon", "--notes", "Felt good")
	require.NoError(t, err)
	assert.Contains(t, out, "Felt good")

	out, err = env.run(t, "check", "submit", "--week", "2025-W42", "--completed", "2", "--planned", "7",
		"--energy", "low", "--event", "Flu", "--event", "Late meetings")
	require.NoError(t, err)
	assert.Contains(t, out, "ADJUST")
	assert.Contains(t, out, "Sick midweek")

	out, err = env.run(t, "plan", "adjust", "--week", "2025-W42", "--reason", "Still recovering")
	require.NoError(t, err)
	assert.Contains(t, out, "Easy walk")
	assert.Contains(t, out, "-Sat [ ] Train Sat (45 min)")
	assert.Contains(t, out, "+Sat [ ] Easy walk (30 min)")

	out, err = env.run(t, "plan", "show", "2025-W42", "--json")
	require.NoError(t, err)
	var plan coach.WeeklyPlan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "Train Mon", plan.Action(coach.Monday).Action, "completed day is kept")
	assert.Equal(t, "Easy walk", plan.Action(coach.Saturday).Action)

	out, err = env.run(t, "history", "--json")
	require.NoError(t, err)
	var history []coach.ExecutionHistory
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 1)
	require.NotNil(t, history[0].RealityCheck)
	assert.Equal(t, []string{"Flu", "Late meetings"}, history[0].RealityCheck.UnexpectedEvents)
	assert.InDelta(t, 0.29, *history[0].FinalCompletionRate, 1e-9)

	out, err = env.run(t, "calls", "--json")
	require.NoError(t, err)
	var records []*llm.CallRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 3)
	ops := []string{records[0].Operation, records[1].Operation, records[2].Operation}
	assert.ElementsMatch(t, []string{"generate_plan", "process_reality_check", "adjust_plan"}, ops)
	assert.Equal(t, 150, records[0].TotalTokens)

	out, err = env.run(t, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_plans": 1`)

	out, err = env.run(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "All data cleared.\n", out)

	out, err = env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No history yet.")
}

func TestCompleteRejectsBadDay(t *testing.T) {
	env := setupCLI(t)
	_, err := env.run(t, "plan", "complete", "--week", "2025-W42", "--day", "Someday")
	assert.ErrorContains(t, err, `invalid day "Someday"`)
}

func TestServe(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.CallLog = ""
	cfg.Model.Provider = "ollama"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := NewApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer app.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + apiPrefix + "/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "ollama", health["llm_provider"])
	assert.Equal(t, true, health["llm_configured"])
	assert.Equal(t, Version, health["version"])

	resp, err = http.Get(base + apiPrefix + "/plans/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
