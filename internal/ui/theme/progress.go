package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// ProgressBar renders percent (0-100) as a bar of width cells followed by
// the rounded percentage.
func ProgressBar(percent float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(float64(width) * percent / 100)
	filled = max(0, min(filled, width))

	bar := lipgloss.NewStyle().Foreground(Secondary).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("░", width-filled))
	return bar + lipgloss.NewStyle().Foreground(TextDim).Render(fmt.Sprintf(" %3d%%", int(percent)))
}
