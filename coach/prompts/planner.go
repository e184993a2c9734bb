// Package prompts renders the instructions sent to the language model for the
// three coaching operations. Every function here is pure.
package prompts

import (
	"fmt"
	"strings"

	"github.com/c360studio/execoach/coach"
)

// MaxHistoryEntries is how many past weeks are digested into a planning prompt.
const MaxHistoryEntries = 3

// PlanningInput carries everything the planning prompt needs.
type PlanningInput struct {
	Profile   *coach.Profile
	History   []coach.ExecutionHistory // most recent first
	WeekID    string
	StartDate string
}

// PlannerSystemPrompt returns the system prompt for weekly plan generation.
func PlannerSystemPrompt() string {
	return `You are a brutally honest execution coach. You create weekly plans people actually complete, not plans that look impressive on paper.

## Rules

1. BUFFER EVERYTHING. Assume tasks take 50% longer than estimated.
2. PLAN FOR DISRUPTIONS. Every week has unexpected meetings, fatigue and life events.
3. ENERGY IS FINITE. People overestimate their weekly energy by 30-40%.
4. LESS IS MORE. Three well-executed priorities beat five half-done ones.
5. LEARN FROM FAILURE. If past completion was below 80%, the plan was too ambitious.

## Daily Actions

- Specific enough to start immediately
- Time-boxed to 30-90 minutes
- Sequenced to avoid burnout
- At least 2 rest or recovery days per week
- Each action carries a detailed_plan with a step-by-step breakdown

## Output Format

Respond with ONLY this JSON object, no other text. "daily_actions" must contain exactly 7 entries, one per day from Mon to Sun. "priorities" holds at most 5 entries.

` + "```json" + `
{
  "priorities": ["priority 1", "priority 2", "priority 3"],
  "excluded": ["excluded item 1", "excluded item 2"],
  "trade_off_rationale": "What was cut and why (buffer time, energy, past performance)",
  "assumptions": ["assumption that could break"],
  "daily_actions": [
    {"day": "Mon", "action": "Specific actionable task", "time_estimate_minutes": 60, "detailed_plan": "1. Warm-up (10 min)\n2. Main work (40 min)\n3. Cool-down (10 min)"},
    {"day": "Tue", "action": "Specific actionable task", "time_estimate_minutes": 45, "detailed_plan": "Session breakdown"},
    {"day": "Wed", "action": "Rest or light activity", "time_estimate_minutes": 0, "detailed_plan": "Light stretching or complete rest"},
    {"day": "Thu", "action": "Specific actionable task", "time_estimate_minutes": 60, "detailed_plan": "Session breakdown"},
    {"day": "Fri", "action": "Specific actionable task", "time_estimate_minutes": 45, "detailed_plan": "Session breakdown"},
    {"day": "Sat", "action": "Specific actionable task", "time_estimate_minutes": 75, "detailed_plan": "Longer session breakdown"},
    {"day": "Sun", "action": "Rest and recovery", "time_estimate_minutes": 0, "detailed_plan": "Complete rest"}
  ]
}
` + "```" + `

Your success is measured by completion rate, not by how ambitious the plan looks.`
}

// PlanningPrompt renders the user prompt for generating the plan of one week.
func PlanningPrompt(in PlanningInput) string {
	p := in.Profile
	var b strings.Builder

	fmt.Fprintf(&b, "Create a realistic weekly plan for week %s starting %s.\n\n", in.WeekID, in.StartDate)

	b.WriteString("## User Profile\n\n")
	fmt.Fprintf(&b, "Primary Objective: %s\n", p.Objective.Description)
	fmt.Fprintf(&b, "Duration: %d weeks\n", p.Objective.DurationWeeks)
	fmt.Fprintf(&b, "Available Time: %s hours/week\n", formatHours(p.HardConstraints.AvailableHoursPerWeek))
	fmt.Fprintf(&b, "Fixed Commitments: %s\n", joinOr(p.HardConstraints.FixedCommitments, "None"))
	fmt.Fprintf(&b, "Physical Constraints: %s\n", joinOr(p.HardConstraints.PhysicalConstraints, "None"))
	fmt.Fprintf(&b, "Minimum Training Frequency: %d sessions/week\n", p.NonNegotiables.MinimumTrainingFrequency)
	fmt.Fprintf(&b, "Rest Days: %s\n", joinOr(p.NonNegotiables.RestDays, "None"))
	fmt.Fprintf(&b, "Other Rules: %s\n", joinOr(p.NonNegotiables.OtherRules, "None"))

	if digest := historyDigest(in.History); digest != "" {
		b.WriteString("\n## Past Performance (learn from this)\n\n")
		b.WriteString(digest)
	}

	b.WriteString(`
## Your Task

Create a weekly plan that:
1. Respects ALL hard constraints and non-negotiables
2. Includes 3-4 priorities MAXIMUM (be ruthless)
3. Keeps 20% of the available time as buffer for unexpected events
4. States explicitly what is EXCLUDED and why
5. Gives an honest trade-off rationale
6. Lists realistic assumptions (expect them to break)
7. Has ONE concrete daily action per day, 7 days total
8. Builds in rest and recovery

Before answering, ask yourself:
- If past completion was below 80%, what else must be cut?
- What is the minimum viable plan that still drives progress?
- Where is this person overestimating their time or energy?
- What will they drop when Tuesday gets busy? Plan around that.

Return ONLY the JSON object.`)

	return b.String()
}

// historyDigest renders the first MaxHistoryEntries weeks, skipping those
// without a final completion rate.
func historyDigest(history []coach.ExecutionHistory) string {
	if len(history) > MaxHistoryEntries {
		history = history[:MaxHistoryEntries]
	}
	var b strings.Builder
	for i := range history {
		if line := history[i].Summary(); line != "" {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

// formatHours prints 6 as "6" and 7.5 as "7.5".
func formatHours(h float64) string {
	return fmt.Sprintf("%g", h)
}
