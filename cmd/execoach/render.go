package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/c360studio/execoach/coach"
	"github.com/c360studio/execoach/llm"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func field(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}

func bullets(items []string) string {
	if len(items) == 0 {
		return labelStyle.Render("  (none)")
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  • " + item)
	}
	return b.String()
}

func renderPlan(w io.Writer, p *coach.WeeklyPlan) {
	var lines []string
	lines = append(lines,
		titleStyle.Render(fmt.Sprintf("Week %s", p.WeekID))+labelStyle.Render(" starting "+p.StartDate),
		"",
		titleStyle.Render("Priorities"),
		bullets(p.Priorities),
		titleStyle.Render("Not this week"),
		bullets(p.Excluded),
		"",
	)
	for _, a := range p.DailyActions {
		mark := "[ ]"
		if a.Completed {
			mark = doneStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s  %-40s %s", mark, a.Day, a.Action, labelStyle.Render(fmt.Sprintf("%d min", a.TimeEstimateMinutes)))
		if a.ActualNotes != nil && *a.ActualNotes != "" {
			line += "\n        " + labelStyle.Render(*a.ActualNotes)
		}
		lines = append(lines, line)
	}
	if p.TradeOffRationale != "" {
		lines = append(lines, "", field("Trade-offs", p.TradeOffRationale))
	}
	if len(p.Assumptions) > 0 {
		lines = append(lines, titleStyle.Render("Assumptions"), bullets(p.Assumptions))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func renderReport(w io.Writer, r *coach.DeviationReport) {
	verdict := doneStyle.Render(strings.ToUpper(string(r.RecommendedAction)))
	if r.RecommendedAction == coach.ActionAdjust {
		verdict = warnStyle.Render(strings.ToUpper(string(r.RecommendedAction)))
	}
	deviation := "no"
	if r.DeviationDetected {
		deviation = warnStyle.Render("yes")
	}
	lines := []string{
		titleStyle.Render("Deviation report " + r.WeekID),
		field("Completion", fmt.Sprintf("%.0f%%", r.CompletionRate*100)),
		field("Deviation", deviation),
		field("Confidence", fmt.Sprintf("%.2f", r.ConfidenceScore)),
		field("Recommendation", verdict),
	}
	if r.DeviationSummary != "" {
		lines = append(lines, "", r.DeviationSummary)
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func renderProfile(w io.Writer, p *coach.Profile) {
	nn := p.NonNegotiables
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Objective %s (v%d)", p.Objective.ID, p.Objective.Version)),
		p.Objective.Description,
		field("Duration", fmt.Sprintf("%d weeks", p.Objective.DurationWeeks)),
		field("Hours per week", fmt.Sprintf("%g", p.HardConstraints.AvailableHoursPerWeek)),
		field("Minimum sessions", fmt.Sprintf("%d", nn.MinimumTrainingFrequency)),
		field("Rest days", strings.Join(nn.RestDays, ", ")),
		titleStyle.Render("Fixed commitments"),
		bullets(p.HardConstraints.FixedCommitments),
		titleStyle.Render("Physical constraints"),
		bullets(p.HardConstraints.PhysicalConstraints),
		titleStyle.Render("Other rules"),
		bullets(nn.OtherRules),
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func renderHistory(w io.Writer, entries []coach.ExecutionHistory) {
	if len(entries) == 0 {
		fmt.Fprintln(w, labelStyle.Render("No history yet."))
		return
	}
	for _, h := range entries {
		rate := labelStyle.Render("pending")
		if h.FinalCompletionRate != nil {
			rate = fmt.Sprintf("%.0f%%", *h.FinalCompletionRate*100)
		}
		line := fmt.Sprintf("%s  %-8s %d/%d done", titleStyle.Render(h.WeekID), rate, h.Plan.CompletedCount(), len(h.Plan.DailyActions))
		if h.DeviationReport != nil {
			line += "  " + string(h.DeviationReport.RecommendedAction)
			if h.DeviationReport.DeviationSummary != "" {
				line += labelStyle.Render(" - " + h.DeviationReport.DeviationSummary)
			}
		}
		fmt.Fprintln(w, line)
	}
}

func renderCalls(w io.Writer, records []*llm.CallRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, labelStyle.Render("No model calls recorded."))
		return
	}
	for _, r := range records {
		status := doneStyle.Render("ok")
		if r.Error != "" {
			status = errStyle.Render("error: " + r.Error)
		}
		fmt.Fprintf(w, "%s  %s  %-22s %s/%s  %dms  %d tokens  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			labelStyle.Render(r.RequestID[:min(8, len(r.RequestID))]),
			r.Operation+" "+r.WeekID,
			r.Provider, r.Model,
			r.DurationMs, r.TotalTokens, status)
	}
}

func renderStatus(w io.Writer, s coach.Stats, weekID string, active *coach.WeeklyPlan) {
	profile := warnStyle.Render("missing")
	if s.ProfileExists {
		profile = doneStyle.Render("present")
	}
	lines := []string{
		titleStyle.Render("execoach status"),
		field("Current week", weekID),
		field("Profile", profile),
		field("Plans", fmt.Sprintf("%d", s.TotalPlans)),
		field("History entries", fmt.Sprintf("%d", s.TotalHistoryEntries)),
	}
	if active != nil {
		lines = append(lines, field("This week", fmt.Sprintf("%d/%d actions done", active.CompletedCount(), len(active.DailyActions))))
	} else {
		lines = append(lines, field("This week", labelStyle.Render("no plan")))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}
