package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"companywise/internal/problems"
)

var (
	cPrimary = lipgloss.Color("63")
	cAccent  = lipgloss.Color("205")
	cGood    = lipgloss.Color("42")
	cWarn    = lipgloss.Color("214")
	cBad     = lipgloss.Color("196")
	cMuted   = lipgloss.Color("244")
	cGold    = lipgloss.Color("220")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(cPrimary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(cMuted)
	goodStyle   = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	goldStyle   = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	todayStyle  = lipgloss.NewStyle().Underline(true)
	panelStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(cMuted).
			Padding(0, 1)
)

var difficultyStyles = map[problems.Difficulty]lipgloss.Style{
	problems.Easy:   lipgloss.NewStyle().Foreground(cGood),
	problems.Medium: lipgloss.NewStyle().Foreground(cWarn),
	problems.Hard:   lipgloss.NewStyle().Foreground(cBad),
}

func difficultyLabel(d problems.Difficulty) string {
	if s, ok := difficultyStyles[d]; ok {
		return s.Render(string(d))
	}
	return string(d)
}

func checkmark(done bool) string {
	if done {
		return goodStyle.Render("✓")
	}
	return mutedStyle.Render("·")
}

// rate formats an acceptance rate fraction as a percentage.
func rate(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// bar renders a fixed-width progress bar for solved/total.
func bar(solved, total, width int) string {
	if total <= 0 {
		return mutedStyle.Render(strings.Repeat("░", width))
	}
	filled := solved * width / total
	return goodStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
