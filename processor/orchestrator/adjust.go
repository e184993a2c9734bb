package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/c360studio/execoach/coach"
	"github.com/c360studio/execoach/coach/prompts"
	"github.com/c360studio/execoach/llm"
	"github.com/c360studio/execoach/storage"
)

// AdjustPlan revises the remaining days of a stored plan. Plan-level fields
// present in the model's reply replace the stored ones. A daily action is
// replaced only when the reply covers its day and it is not yet completed.
// The plan is updated in place under the same week id.
func (o *Orchestrator) AdjustPlan(ctx context.Context, req *coach.AdjustmentRequest) (plan *coach.WeeklyPlan, err error) {
	start := o.now()
	defer func() { o.finish(OpAdjustPlan, req.WeekID, start, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := o.loadPlan(ctx, req.WeekID)
	if err != nil {
		return nil, err
	}
	profile, err := o.loadProfile(ctx)
	if err != nil {
		return nil, err
	}

	deviation, err := o.store.GetDeviationReport(ctx, req.WeekID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load deviation report: %w", err)
		}
		deviation = nil
	}

	userPrompt := prompts.AdjustmentPrompt(prompts.AdjustmentInput{
		Plan:      current,
		Reason:    req.Reason,
		Deviation: deviation,
		Profile:   profile,
	})

	obj, err := o.complete(ctx, OpAdjustPlan, req.WeekID, o.config.PlanningCapability.String(), prompts.AdjusterSystemPrompt(), userPrompt)
	if err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, &OperationError{Op: OpAdjustPlan, Err: ErrNoStructuredOutput}
	}

	plan, err = applyAdjustment(current, obj)
	if err != nil {
		return nil, &OperationError{Op: OpAdjustPlan, Err: err}
	}
	plan.UpdatedAt = o.now()

	if diff, derr := coach.PlanDiff(current, plan); derr == nil && diff != "" {
		o.logger.Debug("Plan adjusted", "week_id", plan.WeekID, "diff", diff)
	}

	if err := o.store.ReplacePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save adjusted plan: %w", err)
	}
	return plan, nil
}

// applyAdjustment returns a copy of current with the reply merged in.
func applyAdjustment(current *coach.WeeklyPlan, obj map[string]any) (*coach.WeeklyPlan, error) {
	var content planContent
	if err := llm.DecodeInto(obj, &content); err != nil {
		return nil, fmt.Errorf("%w: %v", coach.ErrInvalid, err)
	}

	plan := current.Clone()
	if present(obj, "priorities") {
		plan.Priorities = truncate(nonNil(content.Priorities), coach.MaxPriorities)
	}
	if present(obj, "excluded") {
		plan.Excluded = nonNil(content.Excluded)
	}
	if present(obj, "trade_off_rationale") {
		plan.TradeOffRationale = content.TradeOffRationale
	}
	if present(obj, "assumptions") {
		plan.Assumptions = nonNil(content.Assumptions)
	}

	if present(obj, "daily_actions") {
		actions, err := normalizeActions(content.DailyActions)
		if err != nil {
			return nil, err
		}
		byDay := make(map[coach.Day]coach.DailyAction, len(actions))
		for _, a := range actions {
			byDay[a.Day] = a
		}
		for i, existing := range plan.DailyActions {
			if existing.Completed {
				continue
			}
			if replacement, ok := byDay[existing.Day]; ok {
				plan.DailyActions[i] = replacement
			}
		}
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// present reports whether key exists in obj with a non-null value.
func present(obj map[string]any, key string) bool {
	v, ok := obj[key]
	return ok && v != nil
}
