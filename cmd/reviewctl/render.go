package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/events"
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/items"
	"legalreview-backend/internal/sessions"
)

var (
	colorSuccess = lipgloss.Color("#00D787")
	colorError   = lipgloss.Color("#FF5F87")
	colorWarning = lipgloss.Color("#FFAF00")
	colorInfo    = lipgloss.Color("#5FAFFF")
	colorMuted   = lipgloss.Color("#888888")
)

var (
	styleTitle   = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleBox     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(colorInfo).Padding(0, 1)
)

func renderReport(v sessions.View, autoFix *fixes.Summary) string {
	var b strings.Builder

	header := styleTitle.Render(v.FileName) + "\n" + styleMuted.Render("Context: "+v.Context)
	b.WriteString(styleBox.Render(header))
	b.WriteString("\n")
	b.WriteString(renderNotice(v.Notice, v.Message))
	b.WriteString("\n")

	if s, ok := v.Run.Summary(); ok {
		section(&b, "Summary")
		b.WriteString(s.OverallSummary + "\n")
		list(&b, "Parties", s.InvolvedParties)
		list(&b, "Obligations", s.KeyObligations)
		list(&b, "Financial terms", s.FinancialTerms)
		list(&b, "Key dates", s.KeyDates)
	}

	if len(v.Items.Clauses) > 0 {
		section(&b, "Flagged clauses")
		for i, c := range v.Items.Clauses {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, renderState(c.State), c.CurrentText)
			fmt.Fprintf(&b, "   %s\n", styleMuted.Render(c.CurrentReason))
			if len(c.RiskTags) > 0 {
				tags := make([]string, len(c.RiskTags))
				for j, t := range c.RiskTags {
					tags[j] = string(t)
				}
				fmt.Fprintf(&b, "   %s\n", styleWarning.Render(strings.Join(tags, ", ")))
			}
			if c.FixError != "" {
				fmt.Fprintf(&b, "   %s\n", styleError.Render("fix failed: "+c.FixError))
			}
		}
	}

	if s, ok := v.Run.Suggestions(); ok && len(s.Suggestions) > 0 {
		section(&b, "Suggestions")
		for _, sg := range s.Suggestions {
			fmt.Fprintf(&b, "- %s %s\n", styleBold.Render(sg.Area+":"), sg.Suggestion)
		}
	}

	if len(v.Items.Points) > 0 {
		section(&b, "Missing points")
		for _, p := range v.Items.Points {
			switch p.Kind {
			case items.PointMissing:
				fmt.Fprintf(&b, "- %s %s\n", renderState(p.State), p.CurrentText)
			case items.PointRecommendation:
				fmt.Fprintf(&b, "- %s\n", styleMuted.Render("Recommendation: "+p.Text))
			default:
				fmt.Fprintf(&b, "%s\n", styleMuted.Render(p.Text))
			}
			if p.FixError != "" {
				fmt.Fprintf(&b, "  %s\n", styleError.Render("fix failed: "+p.FixError))
			}
		}
	}

	if o, ok := v.Run.PredictedOutcomes(); ok {
		section(&b, "Predicted outcomes")
		if o.OverallRiskAssessment != "" {
			b.WriteString(o.OverallRiskAssessment + "\n")
		}
		for _, p := range o.PredictedOutcomes {
			fmt.Fprintf(&b, "- %s -> %s\n", p.IdentifiedIssue, p.PotentialRealWorldOutcome)
		}
		list(&b, "Recommendations", o.StrategicRecommendations)
	}

	if autoFix != nil {
		section(&b, "Auto-fix")
		fmt.Fprintf(&b, "%s  succeeded %d, failed %d, skipped %d\n",
			autoFix.Message, autoFix.Succeeded, autoFix.Failed, autoFix.Skipped)
	}
	return b.String()
}

func renderNotice(n analyses.Notice, message string) string {
	switch n {
	case analyses.NoticeAllFailed:
		return styleError.Render(message)
	case analyses.NoticePartial:
		return styleWarning.Render(message)
	default:
		return styleSuccess.Render(message)
	}
}

func renderState(s items.State) string {
	switch s {
	case items.StateAccepted:
		return styleSuccess.Render("[accepted]")
	case items.StateProposed:
		return styleWarning.Render("[proposed]")
	default:
		return styleMuted.Render("[open]")
	}
}

func renderStep(s fixes.Step) string {
	switch s.Phase {
	case fixes.PhaseStarted:
		return styleMuted.Render(s.Progress)
	case fixes.PhaseSkipped:
		return styleWarning.Render(fmt.Sprintf("  skipped %s: %s", s.Target, s.Error))
	}
	if s.Err != nil {
		return styleError.Render(fmt.Sprintf("  failed %s: %s", s.Target, s.Error))
	}
	return styleSuccess.Render("  fixed " + s.Target.String())
}

func renderEvent(e events.Event) string {
	data := ""
	if e.Data != nil {
		if raw, err := json.Marshal(e.Data); err == nil {
			data = string(raw)
		}
	}
	line := styleMuted.Render(e.OccurredAt.Format("15:04:05")) + " " + styleTitle.Render(string(e.Type))
	if e.SessionID != "" {
		line += " " + styleBold.Render(e.SessionID)
	}
	if data != "" {
		line += " " + data
	}
	return line
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n" + styleTitle.Render(title) + "\n")
}

func list(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	b.WriteString(styleBold.Render(label) + "\n")
	for _, v := range values {
		b.WriteString("  - " + v + "\n")
	}
}
