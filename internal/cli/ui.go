package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"signalforge/internal/models"
	"signalforge/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(80)

	signalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// RenderRunSummary prints the terminal outcome of one pipeline run.
func RenderRunSummary(record *models.RunRecord) {
	outcome := string(record.Type)
	switch record.Type {
	case models.RunSignal, models.RunDeepDive:
		outcome = signalStyle.Render(outcome)
	case models.RunSkip:
		outcome = skipStyle.Render(outcome)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run      %s\n", record.ID)
	fmt.Fprintf(&b, "Outcome  %s\n", outcome)
	if record.Symbol != "" {
		fmt.Fprintf(&b, "Symbol   %s\n", record.Symbol)
	}
	if record.Confidence != nil {
		fmt.Fprintf(&b, "Confidence %.0f/100\n", *record.Confidence)
	}
	fmt.Fprintf(&b, "Duration %s\n", record.Duration.Round(1e6))
	if record.Error != "" {
		fmt.Fprintf(&b, "Error    %s\n", record.Error)
	}
	if record.Content != "" {
		fmt.Fprintf(&b, "\n%s", record.Content)
	}

	fmt.Println(titleStyle.Render("signalforge"))
	fmt.Println(summaryStyle.Render(b.String()))
}

// RenderEvents prints the run event stream.
func RenderEvents(events []pipeline.Event) {
	for _, e := range events {
		line := fmt.Sprintf("%4d %s [%s] %s", e.Seq, e.At.Format("15:04:05.000"), e.Severity, e.Message)
		if len(e.Fields) > 0 {
			line += fmt.Sprintf(" %v", e.Fields)
		}
		fmt.Println(eventStyle.Render(line))
	}
}
