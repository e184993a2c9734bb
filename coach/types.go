// Package coach defines the records of the weekly execution coach: the user's
// profile, weekly plans, reality checks, deviation reports and the per-week
// execution history that ties them together.
package coach

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Day is a three-letter weekday abbreviation used as the key of a daily action.
type Day string

const (
	Monday    Day = "Mon"
	Tuesday   Day = "Tue"
	Wednesday Day = "Wed"
	Thursday  Day = "Thu"
	Friday    Day = "Fri"
	Saturday  Day = "Sat"
	Sunday    Day = "Sun"
)

// Days lists the week in plan order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Index returns the position of d within the week, or -1 if d is not a day.
func (d Day) Index() int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is one of Mon..Sun.
func (d Day) Valid() bool {
	return d.Index() >= 0
}

// ParseDay accepts the canonical abbreviation in any letter case.
func ParseDay(s string) (Day, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 3 {
		return "", false
	}
	d := Day(strings.ToUpper(s[:1]) + strings.ToLower(s[1:]))
	return d, d.Valid()
}

// EnergyLevel is the self-reported energy for a week.
type EnergyLevel string

const (
	EnergyVeryLow  EnergyLevel = "very_low"
	EnergyLow      EnergyLevel = "low"
	EnergyModerate EnergyLevel = "moderate"
	EnergyHigh     EnergyLevel = "high"
	EnergyVeryHigh EnergyLevel = "very_high"
)

// Valid reports whether e is a known energy level.
func (e EnergyLevel) Valid() bool {
	switch e {
	case EnergyVeryLow, EnergyLow, EnergyModerate, EnergyHigh, EnergyVeryHigh:
		return true
	}
	return false
}

// RecommendedAction is the coaching verdict attached to a deviation report.
type RecommendedAction string

const (
	ActionAdjust   RecommendedAction = "adjust"
	ActionRecommit RecommendedAction = "recommit"
)

// Valid reports whether a is adjust or recommit.
func (a RecommendedAction) Valid() bool {
	return a == ActionAdjust || a == ActionRecommit
}

// Objective is the long-running goal the plans work toward.
type Objective struct {
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	DurationWeeks int       `json:"duration_weeks"`
	CreatedAt     time.Time `json:"created_at"`
	Version       int       `json:"version"`
}

// HardConstraints are limits a plan cannot exceed.
type HardConstraints struct {
	AvailableHoursPerWeek float64  `json:"available_hours_per_week"`
	FixedCommitments      []string `json:"fixed_commitments"`
	PhysicalConstraints   []string `json:"physical_constraints"`
}

// NonNegotiables are rules every plan must honor.
type NonNegotiables struct {
	MinimumTrainingFrequency int      `json:"minimum_training_frequency"`
	RestDays                 []string `json:"rest_days"`
	OtherRules               []string `json:"other_rules"`
}

// Profile is the single active user profile.
type Profile struct {
	Objective       Objective       `json:"objective"`
	HardConstraints HardConstraints `json:"hard_constraints"`
	NonNegotiables  NonNegotiables  `json:"non_negotiables"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DailyAction is one day's commitment inside a weekly plan.
type DailyAction struct {
	Day                 Day     `json:"day"`
	Action              string  `json:"action"`
	TimeEstimateMinutes int     `json:"time_estimate_minutes"`
	DetailedPlan        *string `json:"detailed_plan,omitempty"`
	Completed           bool    `json:"completed"`
	ActualNotes         *string `json:"actual_notes,omitempty"`
}

// WeeklyPlan is the committed plan for one ISO week.
type WeeklyPlan struct {
	WeekID            string        `json:"week_id"`
	StartDate         string        `json:"start_date"`
	Priorities        []string      `json:"priorities"`
	Excluded          []string      `json:"excluded"`
	DailyActions      []DailyAction `json:"daily_actions"`
	TradeOffRationale string        `json:"trade_off_rationale"`
	Assumptions       []string      `json:"assumptions"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at,omitzero"`
}

// Action returns the daily action for d, or nil if the plan has none.
func (p *WeeklyPlan) Action(d Day) *DailyAction {
	for i := range p.DailyActions {
		if p.DailyActions[i].Day == d {
			return &p.DailyActions[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can modify a plan without touching
// the stored value.
func (p *WeeklyPlan) Clone() *WeeklyPlan {
	if p == nil {
		return nil
	}
	c := *p
	c.Priorities = slices.Clone(p.Priorities)
	c.Excluded = slices.Clone(p.Excluded)
	c.Assumptions = slices.Clone(p.Assumptions)
	c.DailyActions = make([]DailyAction, len(p.DailyActions))
	for i, a := range p.DailyActions {
		c.DailyActions[i] = a
		if a.DetailedPlan != nil {
			v := *a.DetailedPlan
			c.DailyActions[i].DetailedPlan = &v
		}
		if a.ActualNotes != nil {
			v := *a.ActualNotes
			c.DailyActions[i].ActualNotes = &v
		}
	}
	return &c
}

// CompletedCount returns the number of daily actions marked completed.
func (p *WeeklyPlan) CompletedCount() int {
	n := 0
	for _, a := range p.DailyActions {
		if a.Completed {
			n++
		}
	}
	return n
}

// RealityCheck is the user's end-of-week report of actual execution.
type RealityCheck struct {
	WeekID            string      `json:"week_id"`
	SessionsCompleted int         `json:"sessions_completed"`
	SessionsPlanned   int         `json:"sessions_planned"`
	EnergyLevel       EnergyLevel `json:"energy_level"`
	UnexpectedEvents  []string    `json:"unexpected_events"`
	Notes             *string     `json:"notes,omitempty"`
	SubmittedAt       time.Time   `json:"submitted_at"`
}

// DeviationReport is the analysis of a reality check against its plan.
type DeviationReport struct {
	WeekID            string            `json:"week_id"`
	DeviationDetected bool              `json:"deviation_detected"`
	CompletionRate    float64           `json:"completion_rate"`
	DeviationSummary  string            `json:"deviation_summary"`
	ConfidenceScore   float64           `json:"confidence_score"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	CreatedAt         time.Time         `json:"created_at"`
}

// ExecutionHistory accumulates everything known about one week.
type ExecutionHistory struct {
	WeekID              string           `json:"week_id"`
	Plan                WeeklyPlan       `json:"plan"`
	RealityCheck        *RealityCheck    `json:"reality_check,omitempty"`
	DeviationReport     *DeviationReport `json:"deviation_report,omitempty"`
	FinalCompletionRate *float64         `json:"final_completion_rate,omitempty"`
}

// Summary renders the one-line digest used when feeding history back into
// planning, e.g. "2025-W41: 71% completion - Missed both long runs".
// It returns "" for weeks without a final completion rate.
func (h *ExecutionHistory) Summary() string {
	if h.FinalCompletionRate == nil {
		return ""
	}
	line := fmt.Sprintf("%s: %.0f%% completion", h.WeekID, *h.FinalCompletionRate*100)
	if h.DeviationReport != nil {
		line += " - " + h.DeviationReport.DeviationSummary
	}
	return line
}

// AdjustmentRequest asks for a mid-week revision of a stored plan.
type AdjustmentRequest struct {
	WeekID string `json:"week_id"`
	Reason string `json:"reason"`
}

// Stats summarizes the size of the state document.
type Stats struct {
	ProfileExists       bool `json:"profile_exists"`
	TotalPlans          int  `json:"total_plans"`
	TotalHistoryEntries int  `json:"total_history_entries"`
}
