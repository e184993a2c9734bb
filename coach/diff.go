package coach

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Outline renders a plan as stable, line-oriented text for display and diffing.
func (p *WeeklyPlan) Outline() string {
	var b strings.Builder
	fmt.Fprintf(&b, "week %s (starts %s)\n", p.WeekID, p.StartDate)
	for i, pr := range p.Priorities {
		fmt.Fprintf(&b, "priority %d: %s\n", i+1, pr)
	}
	for _, ex := range p.Excluded {
		fmt.Fprintf(&b, "excluded: %s\n", ex)
	}
	for _, a := range p.DailyActions {
		mark := " "
		if a.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "%s [%s] %s (%d min)\n", a.Day, mark, a.Action, a.TimeEstimateMinutes)
		if a.ActualNotes != nil && *a.ActualNotes != "" {
			fmt.Fprintf(&b, "    notes: %s\n", *a.ActualNotes)
		}
	}
	if p.TradeOffRationale != "" {
		fmt.Fprintf(&b, "rationale: %s\n", p.TradeOffRationale)
	}
	for _, as := range p.Assumptions {
		fmt.Fprintf(&b, "assumption: %s\n", as)
	}
	return b.String()
}

// PlanDiff returns a unified diff between two revisions of a plan, or "" when
// their outlines are identical.
func PlanDiff(before, after *WeeklyPlan) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before.Outline()),
		B:        difflib.SplitLines(after.Outline()),
		FromFile: before.WeekID + " (before)",
		ToFile:   after.WeekID + " (after)",
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff plan %s: %w", after.WeekID, err)
	}
	return text, nil
}
