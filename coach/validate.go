package coach

import (
	"fmt"
	"slices"
	"strings"
)

// MaxPriorities caps the priority list of a plan.
const MaxPriorities = 5

// Validate checks a single daily action.
func (a *DailyAction) Validate() error {
	if !a.Day.Valid() {
		return fmt.Errorf("%w: day %q must be one of Mon..Sun", ErrInvalid, a.Day)
	}
	if strings.TrimSpace(a.Action) == "" {
		return fmt.Errorf("%w: %s action must not be empty", ErrInvalid, a.Day)
	}
	if a.TimeEstimateMinutes < 0 {
		return fmt.Errorf("%w: %s time_estimate_minutes must be >= 0, got %d", ErrInvalid, a.Day, a.TimeEstimateMinutes)
	}
	return nil
}

// Validate checks the structural invariants of a plan: a valid week id, at
// most five priorities, valid daily actions and no repeated day.
func (p *WeeklyPlan) Validate() error {
	if err := ValidateWeekID(p.WeekID); err != nil {
		return err
	}
	if len(p.Priorities) > MaxPriorities {
		return fmt.Errorf("%w: at most %d priorities allowed, got %d", ErrInvalid, MaxPriorities, len(p.Priorities))
	}
	seen := make(map[Day]bool, len(p.DailyActions))
	for i := range p.DailyActions {
		a := &p.DailyActions[i]
		if err := a.Validate(); err != nil {
			return err
		}
		if seen[a.Day] {
			return fmt.Errorf("%w: duplicate daily action for %s", ErrInvalid, a.Day)
		}
		seen[a.Day] = true
	}
	return nil
}

// HasFullWeek reports whether the plan has exactly one action for every day.
func (p *WeeklyPlan) HasFullWeek() bool {
	if len(p.DailyActions) != len(Days) {
		return false
	}
	for _, d := range Days {
		if p.Action(d) == nil {
			return false
		}
	}
	return true
}

// SortActions orders daily actions Mon..Sun.
func (p *WeeklyPlan) SortActions() {
	slices.SortStableFunc(p.DailyActions, func(a, b DailyAction) int {
		return a.Day.Index() - b.Day.Index()
	})
}

// Validate checks a reality check submission.
func (rc *RealityCheck) Validate() error {
	if err := ValidateWeekID(rc.WeekID); err != nil {
		return err
	}
	if rc.SessionsCompleted < 0 {
		return fmt.Errorf("%w: sessions_completed must be >= 0", ErrInvalid)
	}
	if rc.SessionsPlanned < 0 {
		return fmt.Errorf("%w: sessions_planned must be >= 0", ErrInvalid)
	}
	if !rc.EnergyLevel.Valid() {
		return fmt.Errorf("%w: energy_level %q must be one of very_low, low, moderate, high, very_high", ErrInvalid, rc.EnergyLevel)
	}
	return nil
}

// Validate checks ranges and the recommended action of a report.
func (r *DeviationReport) Validate() error {
	if r.CompletionRate < 0 || r.CompletionRate > 1 {
		return fmt.Errorf("%w: completion_rate must be within [0,1], got %v", ErrInvalid, r.CompletionRate)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence_score must be within [0,1], got %v", ErrInvalid, r.ConfidenceScore)
	}
	if !r.RecommendedAction.Valid() {
		return fmt.Errorf("%w: recommended_action %q must be adjust or recommit", ErrInvalid, r.RecommendedAction)
	}
	return nil
}

// Validate checks an adjustment request.
func (r *AdjustmentRequest) Validate() error {
	if err := ValidateWeekID(r.WeekID); err != nil {
		return err
	}
	if r.Reason == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalid)
	}
	return nil
}
