package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a one-line scrolling chart of the last Width values.
type Sparkline struct {
	Width int
	Label string
	Style lipgloss.Style

	data []float64
}

func NewSparkline(width int, label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width: width,
		Label: label,
		Style: style,
		data:  make([]float64, 0, width),
	}
}

func (s *Sparkline) Push(v float64) {
	s.data = append(s.data, max(v, 0))
	if len(s.data) > s.Width {
		s.data = s.data[len(s.data)-s.Width:]
	}
}

// Last returns the most recent value, or 0.
func (s Sparkline) Last() float64 {
	if len(s.data) == 0 {
		return 0
	}
	return s.data[len(s.data)-1]
}

// Line renders the chart scaled to the largest visible value.
func (s Sparkline) Line() string {
	if s.Width <= 0 {
		return ""
	}

	peak := 0.0
	for _, v := range s.data {
		peak = max(peak, v)
	}

	var b strings.Builder
	for _, v := range s.data {
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(levels)-1))
		}
		b.WriteRune(levels[idx])
	}
	if pad := s.Width - len(s.data); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	return b.String()
}

func (s Sparkline) View() string {
	return s.Style.Render(s.Label) + "\n" + s.Style.Render(s.Line())
}
