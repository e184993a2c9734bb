package prompts

import (
	"fmt"
	"strings"

	"github.com/c360studio/execoach/coach"
)

// AdjustmentInput carries everything the adjustment prompt needs.
type AdjustmentInput struct {
	Plan      *coach.WeeklyPlan
	Reason    string
	Deviation *coach.DeviationReport // optional
	Profile   *coach.Profile
}

// AdjusterSystemPrompt returns the system prompt for mid-week plan adjustment.
func AdjusterSystemPrompt() string {
	return `You are an execution coach adjusting a weekly plan mid-week based on actual execution data.

This is a RESCUE operation, not a fresh start. Be conservative.

## Your Task

Create an adjusted plan for the REMAINING days of the week that:
1. Ruthlessly cuts scope based on reality
2. Keeps 2-3 priorities maximum
3. Focuses on what is achievable in the remaining time
4. Maintains momentum without overwhelming the user
5. Gives an honest rationale for what was cut

Only include days that still need an action in "daily_actions". Completed days are kept as they are.

## Output Format

Respond with ONLY this JSON object, no other text:

` + "```json" + `
{
  "priorities": ["adjusted priority 1", "adjusted priority 2"],
  "excluded": ["now excluded 1", "now excluded 2"],
  "trade_off_rationale": "Honest explanation of cuts and why",
  "assumptions": ["assumption 1"],
  "daily_actions": [
    {"day": "Thu", "action": "Specific actionable task", "time_estimate_minutes": 45},
    {"day": "Fri", "action": "Specific actionable task", "time_estimate_minutes": 45},
    {"day": "Sat", "action": "Rest and recovery", "time_estimate_minutes": 0},
    {"day": "Sun", "action": "Light activity", "time_estimate_minutes": 30}
  ]
}
` + "```" + `

Focus on salvaging the week, not heroics.`
}

// AdjustmentPrompt renders the user prompt for revising a stored plan.
func AdjustmentPrompt(in AdjustmentInput) string {
	plan := in.Plan
	var b strings.Builder

	fmt.Fprintf(&b, "## Original Plan (Week %s)\n\n", plan.WeekID)
	fmt.Fprintf(&b, "Priorities: %s\n", joinOr(plan.Priorities, "None"))
	fmt.Fprintf(&b, "Excluded: %s\n", joinOr(plan.Excluded, "None"))

	b.WriteString("\n## Actual Execution So Far\n\n")
	for _, a := range plan.DailyActions {
		status := "Not Done"
		if a.Completed {
			status = "Done"
		}
		notes := "No notes"
		if a.ActualNotes != nil && *a.ActualNotes != "" {
			notes = *a.ActualNotes
		}
		fmt.Fprintf(&b, "%s: %s - %s (planned: %s, %d min)\n", a.Day, status, notes, a.Action, a.TimeEstimateMinutes)
	}

	b.WriteString("\n## Reason for Adjustment\n\n")
	b.WriteString(in.Reason)
	b.WriteString("\n")

	if d := in.Deviation; d != nil {
		b.WriteString("\n## Deviation Analysis\n\n")
		fmt.Fprintf(&b, "Completion Rate: %.0f%%\n", d.CompletionRate*100)
		fmt.Fprintf(&b, "Summary: %s\n", d.DeviationSummary)
		fmt.Fprintf(&b, "Recommended Action: %s\n", d.RecommendedAction)
	}

	if p := in.Profile; p != nil {
		b.WriteString("\n## User Constraints\n\n")
		fmt.Fprintf(&b, "Available Time: %s hours/week\n", formatHours(p.HardConstraints.AvailableHoursPerWeek))
		fmt.Fprintf(&b, "Minimum Training: %d sessions/week\n", p.NonNegotiables.MinimumTrainingFrequency)
		fmt.Fprintf(&b, "Rest Days: %s\n", joinOr(p.NonNegotiables.RestDays, "None"))
	}

	b.WriteString("\nReturn ONLY the JSON object.")
	return b.String()
}
