package theme

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		width   int
		filled  int
		label   string
	}{
		{0, 10, 0, "0%"},
		{50, 10, 5, "50%"},
		{100, 10, 10, "100%"},
		{150, 10, 10, "150%"},
		{50, 2, 2, "50%"},
	}
	for _, tt := range tests {
		out := ProgressBar(tt.percent, tt.width)
		if got := strings.Count(out, "█"); got != tt.filled {
			t.Errorf("ProgressBar(%v, %d) filled = %d, want %d", tt.percent, tt.width, got, tt.filled)
		}
		if !strings.Contains(out, " "+tt.label) {
			t.Errorf("ProgressBar(%v, %d) = %q, want %q", tt.percent, tt.width, out, tt.label)
		}
	}
}

func TestStatusStyles(t *testing.T) {
	if lipgloss.Width(Status("completed").Render("completed")) != len("completed") {
		t.Error("status style must not pad its text")
	}
}
