package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/execoach/coach"
	"github.com/c360studio/execoach/coach/prompts"
	"github.com/c360studio/execoach/llm"
)

// reportContent mirrors the deviation report the model returns. Pointers
// distinguish missing keys from zero values.
type reportContent struct {
	DeviationDetected *bool    `json:"deviation_detected"`
	CompletionRate    *float64 `json:"completion_rate"`
	DeviationSummary  *string  `json:"deviation_summary"`
	ConfidenceScore   *float64 `json:"confidence_score"`
	RecommendedAction *string  `json:"recommended_action"`
}

// ProcessRealityCheck stores rc, analyzes it against the week's plan and
// stores the resulting deviation report. The reality check is kept even
// when the model call fails. When no JSON can be recovered from the reply
// the report is computed locally from the session counts.
func (o *Orchestrator) ProcessRealityCheck(ctx context.Context, rc *coach.RealityCheck) (report *coach.DeviationReport, err error) {
	start := o.now()
	defer func() { o.finish(OpProcessRealityCheck, rc.WeekID, start, err) }()

	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if rc.SubmittedAt.IsZero() {
		rc.SubmittedAt = start
	}

	plan, err := o.loadPlan(ctx, rc.WeekID)
	if err != nil {
		return nil, err
	}

	if err := o.store.SaveRealityCheck(ctx, rc); err != nil {
		return nil, fmt.Errorf("save reality check: %w", err)
	}

	obj, err := o.complete(ctx, OpProcessRealityCheck, rc.WeekID, o.config.ReviewingCapability.String(),
		prompts.ReviewerSystemPrompt(), prompts.DeviationPrompt(plan, rc))
	if err != nil {
		return nil, err
	}

	if len(obj) == 0 {
		o.recorder.ObserveFallback(OpProcessRealityCheck)
		o.logger.Warn("Using local deviation estimate", "week_id", rc.WeekID)
		report = o.fallbackReport(rc)
	} else {
		report, err = o.buildReport(obj, rc.WeekID)
		if err != nil {
			return nil, &OperationError{Op: OpProcessRealityCheck, Err: err}
		}
	}

	if err := o.store.SaveDeviationReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save deviation report: %w", err)
	}
	return report, nil
}

// fallbackReport computes a report from the session counts alone. Extra
// sessions beyond the plan count as full completion.
func (o *Orchestrator) fallbackReport(rc *coach.RealityCheck) *coach.DeviationReport {
	rate := 0.0
	if rc.SessionsPlanned > 0 {
		rate = min(float64(rc.SessionsCompleted)/float64(rc.SessionsPlanned), 1)
	}
	action := coach.ActionRecommit
	if rate < o.config.DeviationThreshold {
		action = coach.ActionAdjust
	}
	return &coach.DeviationReport{
		WeekID:            rc.WeekID,
		DeviationDetected: rate < o.config.DeviationThreshold,
		CompletionRate:    rate,
		DeviationSummary:  fmt.Sprintf("Completed %d/%d sessions", rc.SessionsCompleted, rc.SessionsPlanned),
		ConfidenceScore:   o.config.FallbackConfidence,
		RecommendedAction: action,
		CreatedAt:         o.now(),
	}
}

// buildReport fills missing keys with neutral defaults and validates ranges.
func (o *Orchestrator) buildReport(obj map[string]any, weekID string) (*coach.DeviationReport, error) {
	var content reportContent
	if err := llm.DecodeInto(obj, &content); err != nil {
		return nil, fmt.Errorf("%w: %v", coach.ErrInvalid, err)
	}

	report := &coach.DeviationReport{
		WeekID:            weekID,
		ConfidenceScore:   o.config.FallbackConfidence,
		RecommendedAction: coach.ActionRecommit,
		CreatedAt:         o.now(),
	}
	if content.DeviationDetected != nil {
		report.DeviationDetected = *content.DeviationDetected
	}
	if content.CompletionRate != nil {
		report.CompletionRate = *content.CompletionRate
	}
	if content.DeviationSummary != nil {
		report.DeviationSummary = *content.DeviationSummary
	}
	if content.ConfidenceScore != nil {
		report.ConfidenceScore = *content.ConfidenceScore
	}
	if content.RecommendedAction != nil {
		report.RecommendedAction = coach.RecommendedAction(strings.ToLower(strings.TrimSpace(*content.RecommendedAction)))
	}

	if err := report.Validate(); err != nil {
		return nil, err
	}
	return report, nil
}
