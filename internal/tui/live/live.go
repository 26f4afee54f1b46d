package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"steadydb/internal/runner"
	"steadydb/internal/tui/components"
	"steadydb/internal/tui/styles"
)

// Model is the dashboard shown while a run is active. It is driven entirely
// by runner.Progress messages.
type Model struct {
	Last     runner.Progress
	Duration time.Duration
	Target   int

	Progress    progress.Model
	QPSLine     components.Sparkline
	LatencyLine components.Sparkline

	Width int
}

func NewModel(duration time.Duration, targetQPS int) Model {
	return Model{
		Duration:    duration,
		Target:      targetQPS,
		Progress:    progress.New(progress.WithDefaultGradient()),
		QPSLine:     components.NewSparkline(40, "QPS", styles.Active),
		LatencyLine: components.NewSparkline(40, "Latency P90 (ms)", styles.Warn),
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.Progress:
		m.Last = msg
		m.QPSLine.Push(float64(msg.Delta))
		m.LatencyLine.Push(ms(msg.Live.P90))

		pct := 1.0
		if m.Duration > 0 {
			pct = min(float64(msg.Elapsed)/float64(m.Duration), 1)
		}
		return m, m.Progress.SetPercent(pct)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Progress.Width = max(msg.Width-4, 10)

		half := max(msg.Width/2-4, 10)
		m.QPSLine.Width = half
		m.LatencyLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (m Model) View() string {
	var s strings.Builder
	live := m.Last.Live
	errRate := live.ErrorRate()

	col1 := fmt.Sprintf("QUERIES: %d\nQPS:     %d/%d", m.Last.Total, m.Last.Delta, m.Target)
	col2 := fmt.Sprintf("ERR:  %.2f%%\nFAIL: %d", errRate, live.Fail)
	col3 := fmt.Sprintf("ELAPSED: %s\nOF:      %s", m.Last.Elapsed.Round(time.Second), m.Duration)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(styles.ErrorRate(errRate).Render(col2)),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.QPSLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	s.WriteString(styles.Box.Render(fmt.Sprintf(
		"P50: %.2f ms  |  P90: %.2f ms  |  P99: %.2f ms  |  Max: %.2f ms",
		ms(live.P50), ms(live.P90), ms(live.P99), ms(live.Max),
	)))
	s.WriteString("\n\n")
	s.WriteString(m.Progress.View())

	return s.String()
}
