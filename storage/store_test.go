package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/execoach/coach"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", DefaultStateFile), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return s
}

func testPlan(weekID, firstAction string) *coach.WeeklyPlan {
	plan := &coach.WeeklyPlan{
		WeekID:     weekID,
		StartDate:  "2025-10-13",
		Priorities: []string{"Long run", "Strength"},
		Excluded:   []string{"Racing"},
		Assumptions: []string{
			"Normal work week",
		},
		TradeOffRationale: "Volume over intensity",
	}
	for i, d := range coach.Days {
		action := "Rest"
		if i == 0 {
			action = firstAction
		}
		plan.DailyActions = append(plan.DailyActions, coach.DailyAction{Day: d, Action: action, TimeEstimateMinutes: 30})
	}
	return plan
}

func TestStore_EmptyDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LoadProfile(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := s.ProfileExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.GetPlan(ctx, "2025-W42")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LatestPlan(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.NotNil(t, plans)
	assert.Empty(t, plans)

	history, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, coach.Stats{}, stats)

	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "reads must not create the file")
}

func TestStore_Profile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := coach.NewProfile(nil, coach.ProfileInput{
		ObjectiveDescription:     "Run a marathon",
		DurationWeeks:            16,
		AvailableHoursPerWeek:    6,
		MinimumTrainingFrequency: 3,
	}, fixedNow.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.SaveProfile(ctx, p))
	assert.Equal(t, fixedNow, p.UpdatedAt)

	loaded, err := s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "obj_001", loaded.Objective.ID)
	assert.Equal(t, fixedNow, loaded.UpdatedAt.UTC())

	next, err := coach.NewProfile(loaded, coach.ProfileInput{
		ObjectiveDescription:     "Run a faster marathon",
		DurationWeeks:            12,
		AvailableHoursPerWeek:    7,
		MinimumTrainingFrequency: 4,
	}, fixedNow)
	require.NoError(t, err)
	require.NoError(t, s.SaveProfile(ctx, next))

	loaded, err = s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Objective.Version)
	assert.Equal(t, "Run a faster marathon", loaded.Objective.Description)

	exists, err := s.ProfileExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_SavePlanTwiceKeepsOneRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePlan(ctx, testPlan("2025-W41", "Easy run")))
	require.NoError(t, s.SavePlan(ctx, testPlan("2025-W42", "Intervals")))
	require.NoError(t, s.SavePlan(ctx, testPlan("2025-W41", "Tempo run")))

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	// Replaced in place, not moved to the end.
	assert.Equal(t, "2025-W41", plans[0].WeekID)
	assert.Equal(t, "Tempo run", plans[0].DailyActions[0].Action)

	got, err := s.GetPlan(ctx, "2025-W41")
	require.NoError(t, err)
	assert.Equal(t, "Tempo run", got.DailyActions[0].Action)

	latest, err := s.LatestPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-W42", latest.WeekID)
}

func TestStore_SavePlanRejectsBadWeekID(t *testing.T) {
	s := newTestStore(t)
	err := s.SavePlan(context.Background(), testPlan("2025-42", "Run"))
	assert.ErrorIs(t, err, coach.ErrInvalid)
}

func TestStore_CommitGeneratedPlanResetsHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CommitGeneratedPlan(ctx, testPlan("2025-W42", "Easy run")))
	require.NoError(t, s.SaveRealityCheck(ctx, &coach.RealityCheck{WeekID: "2025-W42", SessionsCompleted: 1, SessionsPlanned: 3, EnergyLevel: coach.EnergyLow}))

	entry, err := s.GetHistoryEntry(ctx, "2025-W42")
	require.NoError(t, err)
	require.NotNil(t, entry.RealityCheck)

	// Regenerating the week starts a fresh history entry.
	require.NoError(t, s.CommitGeneratedPlan(ctx, testPlan("2025-W42", "Hill repeats")))
	entry, err = s.GetHistoryEntry(ctx, "2025-W42")
	require.NoError(t, err)
	assert.Nil(t, entry.RealityCheck)
	assert.Equal(t, "Hill repeats", entry.Plan.DailyActions[0].Action)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, coach.Stats{TotalPlans: 1, TotalHistoryEntries: 1}, stats)
}

func TestStore_DeviationReportSetsFinalRate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CommitGeneratedPlan(ctx, testPlan("2025-W42", "Easy run")))
	_, err := s.GetDeviationReport(ctx, "2025-W42")
	assert.ErrorIs(t, err, ErrNotFound)

	report := &coach.DeviationReport{
		WeekID:            "2025-W42",
		DeviationDetected: true,
		CompletionRate:    0.5,
		DeviationSummary:  "Missed two sessions",
		ConfidenceScore:   0.6,
		RecommendedAction: coach.ActionAdjust,
	}
	require.NoError(t, s.SaveDeviationReport(ctx, report))

	got, err := s.GetDeviationReport(ctx, "2025-W42")
	require.NoError(t, err)
	assert.Equal(t, "Missed two sessions", got.DeviationSummary)

	entry, err := s.GetHistoryEntry(ctx, "2025-W42")
	require.NoError(t, err)
	require.NotNil(t, entry.FinalCompletionRate)
	assert.InDelta(t, 0.5, *entry.FinalCompletionRate, 1e-9)
}

func TestStore_HistoryEntryCreatedFromPlan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveRealityCheck(ctx, &coach.RealityCheck{WeekID: "2025-W42", EnergyLevel: coach.EnergyHigh})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SavePlan(ctx, testPlan("2025-W42", "Easy run")))
	require.NoError(t, s.SaveRealityCheck(ctx, &coach.RealityCheck{WeekID: "2025-W42", EnergyLevel: coach.EnergyHigh}))

	entry, err := s.GetHistoryEntry(ctx, "2025-W42")
	require.NoError(t, err)
	assert.Equal(t, "Easy run", entry.Plan.DailyActions[0].Action)
	require.NotNil(t, entry.RealityCheck)
	assert.Equal(t, coach.EnergyHigh, entry.RealityCheck.EnergyLevel)
}

func TestStore_ListHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, w := range []string{"2025-W40", "2025-W42", "2024-W52", "2025-W41"} {
		require.NoError(t, s.SaveHistoryEntry(ctx, &coach.ExecutionHistory{WeekID: w}))
	}

	all, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	var ids []string
	for _, h := range all {
		ids = append(ids, h.WeekID)
	}
	assert.Equal(t, []string{"2025-W42", "2025-W41", "2025-W40", "2024-W52"}, ids)

	limited, err := s.ListHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "2025-W41", limited[1].WeekID)
}

func TestStore_UpdateDailyAction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CommitGeneratedPlan(ctx, testPlan("2025-W42", "Easy run")))

	done := true
	notes := "Felt strong"
	plan, err := s.UpdateDailyAction(ctx, "2025-W42", coach.Monday, DailyActionUpdate{Completed: &done, ActualNotes: &notes})
	require.NoError(t, err)
	assert.True(t, plan.Action(coach.Monday).Completed)
	assert.Equal(t, fixedNow, plan.UpdatedAt)

	stored, err := s.GetPlan(ctx, "2025-W42")
	require.NoError(t, err)
	require.NotNil(t, stored.Action(coach.Monday).ActualNotes)
	assert.Equal(t, "Felt strong", *stored.Action(coach.Monday).ActualNotes)
	assert.False(t, stored.Action(coach.Tuesday).Completed)

	entry, err := s.GetHistoryEntry(ctx, "2025-W42")
	require.NoError(t, err)
	assert.True(t, entry.Plan.Action(coach.Monday).Completed)

	_, err = s.UpdateDailyAction(ctx, "2025-W43", coach.Monday, DailyActionUpdate{Completed: &done})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ReplacePlanKeepsHistoryDetails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CommitGeneratedPlan(ctx, testPlan("2025-W42", "Easy run")))
	require.NoError(t, s.SaveRealityCheck(ctx, &coach.RealityCheck{WeekID: "2025-W42", EnergyLevel: coach.EnergyModerate}))

	require.NoError(t, s.ReplacePlan(ctx, testPlan("2025-W42", "Swim")))

	entry, err := s.GetHistoryEntry(ctx, "2025-W42")
	require.NoError(t, err)
	assert.Equal(t, "Swim", entry.Plan.DailyActions[0].Action)
	assert.NotNil(t, entry.RealityCheck)

	err = s.ReplacePlan(ctx, testPlan("2025-W43", "Swim"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DocumentShape(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SavePlan(ctx, testPlan("2025-W42", "Easy run")))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "null", string(raw["profile"]))
	assert.Contains(t, raw, "plans")
	assert.Equal(t, "[]", string(raw["history"]))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CommitGeneratedPlan(ctx, testPlan("2025-W42", "Easy run")))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, coach.Stats{}, stats)
}

func TestStore_ConcurrentWritersKeepDocumentIntact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	weeks := []string{"2025-W40", "2025-W41", "2025-W42", "2025-W43"}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SavePlan(ctx, testPlan(weeks[i%len(weeks)], "Run")))
		}(i)
	}
	wg.Wait()

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, len(weeks))
}

func TestStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.SavePlan(ctx, testPlan("2025-W42", "Run")), context.Canceled)
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_CorruptDocument(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := s.Load(context.Background())
	assert.ErrorContains(t, err, "parse state")
}
