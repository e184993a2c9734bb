package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/c360studio/execoach/coach"
	"github.com/c360studio/execoach/coach/prompts"
	"github.com/c360studio/execoach/llm"
)

// planContent is the plan shape the model is asked to return.
type planContent struct {
	Priorities        []string            `json:"priorities"`
	Excluded          []string            `json:"excluded"`
	TradeOffRationale string              `json:"trade_off_rationale"`
	Assumptions       []string            `json:"assumptions"`
	DailyActions      []coach.DailyAction `json:"daily_actions"`
}

// GeneratePlan creates and stores the plan for the week starting at
// weekStart. A zero weekStart targets next Monday; any other date is moved
// to the Monday of its ISO week. The week's history entry is reset to hold
// only the new plan.
func (o *Orchestrator) GeneratePlan(ctx context.Context, weekStart time.Time) (plan *coach.WeeklyPlan, err error) {
	start := o.now()
	if weekStart.IsZero() {
		weekStart = coach.NextMonday(start)
	} else {
		weekStart = coach.WeekStart(weekStart)
	}
	weekID := coach.WeekID(weekStart)
	defer func() { o.finish(OpGeneratePlan, weekID, start, err) }()

	profile, err := o.loadProfile(ctx)
	if err != nil {
		return nil, err
	}

	history, err := o.store.ListHistory(ctx, o.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	userPrompt := prompts.PlanningPrompt(prompts.PlanningInput{
		Profile:   profile,
		History:   history,
		WeekID:    weekID,
		StartDate: weekStart.Format(coach.DateLayout),
	})

	obj, err := o.complete(ctx, OpGeneratePlan, weekID, o.config.PlanningCapability.String(), prompts.PlannerSystemPrompt(), userPrompt)
	if err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, &OperationError{Op: OpGeneratePlan, Err: ErrNoStructuredOutput}
	}

	plan, err = o.buildPlan(obj, weekID, weekStart)
	if err != nil {
		return nil, &OperationError{Op: OpGeneratePlan, Err: err}
	}

	if err := o.store.CommitGeneratedPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return plan, nil
}

// buildPlan turns the extracted object into a validated full-week plan.
func (o *Orchestrator) buildPlan(obj map[string]any, weekID string, weekStart time.Time) (*coach.WeeklyPlan, error) {
	var content planContent
	if err := llm.DecodeInto(obj, &content); err != nil {
		return nil, fmt.Errorf("%w: %v", coach.ErrInvalid, err)
	}

	actions, err := normalizeActions(content.DailyActions)
	if err != nil {
		return nil, err
	}

	plan := &coach.WeeklyPlan{
		WeekID:            weekID,
		StartDate:         weekStart.Format(coach.DateLayout),
		Priorities:        truncate(nonNil(content.Priorities), coach.MaxPriorities),
		Excluded:          nonNil(content.Excluded),
		DailyActions:      actions,
		TradeOffRationale: content.TradeOffRationale,
		Assumptions:       nonNil(content.Assumptions),
		CreatedAt:         o.now(),
	}
	plan.SortActions()

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if !plan.HasFullWeek() {
		return nil, fmt.Errorf("%w: daily_actions must hold exactly one entry for each of Mon..Sun, got %d", coach.ErrInvalid, len(plan.DailyActions))
	}
	return plan, nil
}

// normalizeActions canonicalizes day names, clears user-owned fields and
// validates every action. One malformed action rejects the whole list.
func normalizeActions(in []coach.DailyAction) ([]coach.DailyAction, error) {
	out := make([]coach.DailyAction, 0, len(in))
	for _, a := range in {
		if d, ok := coach.ParseDay(string(a.Day)); ok {
			a.Day = d
		}
		a.Completed = false
		a.ActualNotes = nil
		if err := a.Validate(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func truncate(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
