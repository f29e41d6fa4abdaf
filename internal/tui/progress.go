package tui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// bar renders a labelled horizontal bar for a fraction in [0,1].
func bar(label string, frac float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(float64(width)*frac + 0.5)
	filled = max(0, min(filled, width))

	fill := lipgloss.NewStyle().Background(colAccent).Render(strings.Repeat(" ", filled))
	rest := lipgloss.NewStyle().Background(colRule).Render(strings.Repeat(" ", width-filled))
	pct := styleDim.Render(fmt.Sprintf(" %3.0f%%", frac*100))
	return fmt.Sprintf("%-12s %s%s%s", label, fill, rest, pct)
}
