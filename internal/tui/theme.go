// Package tui is the terminal practice session: one question at a time,
// graded feedback, and a readiness summary at the end.
package tui

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepforge/internal/question"
)

var (
	colPrimary = lipgloss.Color("#6366F1") // indigo
	colAccent  = lipgloss.Color("#0EA5E9") // sky
	colSuccess = lipgloss.Color("#22C55E")
	colError   = lipgloss.Color("#F43F5E")
	colWarn    = lipgloss.Color("#F59E0B")
	colText    = lipgloss.Color("#F8FAFC")
	colDim     = lipgloss.Color("#94A3B8")
	colRule    = lipgloss.Color("#334155")
)

var (
	styleTitle    = lipgloss.NewStyle().Foreground(colPrimary).Bold(true)
	styleInfo     = lipgloss.NewStyle().Foreground(colAccent).Bold(true)
	styleBody     = lipgloss.NewStyle().Foreground(colText)
	stylePrompt   = lipgloss.NewStyle().Foreground(colText).Bold(true)
	styleDim      = lipgloss.NewStyle().Foreground(colDim)
	styleHint     = lipgloss.NewStyle().Foreground(colDim).Italic(true)
	styleSelected = lipgloss.NewStyle().Foreground(colPrimary).Bold(true)
	styleCorrect  = lipgloss.NewStyle().Foreground(colSuccess).Bold(true)
	styleWrong    = lipgloss.NewStyle().Foreground(colError).Bold(true)
	styleWarn     = lipgloss.NewStyle().Foreground(colWarn)
	styleRule     = lipgloss.NewStyle().Foreground(colRule)

	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colRule).
			Padding(1, 2)
)

// tierStyle colours the tier badge so fallbacks stand out.
func tierStyle(tier question.Tier) lipgloss.Style {
	switch tier {
	case question.TierAuthored:
		return lipgloss.NewStyle().Foreground(colSuccess)
	case question.TierCached, question.TierOnDemand:
		return lipgloss.NewStyle().Foreground(colAccent)
	default:
		return styleWarn
	}
}
