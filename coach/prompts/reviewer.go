package prompts

import (
	"fmt"
	"strings"

	"github.com/c360studio/execoach/coach"
)

// ReviewerSystemPrompt returns the system prompt for deviation analysis.
func ReviewerSystemPrompt() string {
	return `You are an execution auditor comparing what was planned against what actually happened in a week.

## What Counts as Significant Deviation

- Completion rate below 70%
- Multiple unexpected events disrupted the plan
- A clear mismatch between planned and actual execution in the notes
- Energy levels were consistently low

## What to Provide

1. completion_rate between 0.0 and 1.0
2. deviation_detected: whether the deviation is significant
3. deviation_summary: a clear summary that uses the execution notes
4. confidence_score: how realistic the original plan was (0.0 unrealistic, 1.0 perfectly realistic)
5. recommended_action: "adjust" when the plan needs revising, "recommit" when the plan was fine and execution must improve

## Output Format

Respond with ONLY this JSON object, no other text:

` + "```json" + `
{
  "deviation_detected": true,
  "completion_rate": 0.65,
  "deviation_summary": "Clear explanation of what happened",
  "confidence_score": 0.7,
  "recommended_action": "adjust"
}
` + "```"
}

// DeviationPrompt renders the user prompt for analyzing a reality check
// against its plan.
func DeviationPrompt(plan *coach.WeeklyPlan, rc *coach.RealityCheck) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze actual vs planned performance for week %s.\n\n", rc.WeekID)

	b.WriteString("## Planned Actions\n\n")
	for _, a := range plan.DailyActions {
		fmt.Fprintf(&b, "%s: %s (%d min)\n", a.Day, a.Action, a.TimeEstimateMinutes)
	}

	b.WriteString("\n## Actual Execution\n\n")
	fmt.Fprintf(&b, "Sessions Completed: %d / %d\n", rc.SessionsCompleted, rc.SessionsPlanned)
	fmt.Fprintf(&b, "Energy Level: %s\n", rc.EnergyLevel)
	fmt.Fprintf(&b, "Unexpected Events: %s\n", joinOr(rc.UnexpectedEvents, "None"))

	b.WriteString("\n## Notes on What Was Actually Done\n\n")
	notes := "No detailed notes provided"
	if rc.Notes != nil && strings.TrimSpace(*rc.Notes) != "" {
		notes = *rc.Notes
	}
	b.WriteString(notes)
	b.WriteString("\n\nUse the notes to judge what was actually done versus what was planned. Return ONLY the JSON object.")

	return b.String()
}
