package result

import (
	"fmt"
	"strings"
	"time"

	"steadydb/internal/stats"
	"steadydb/internal/tui/styles"
)

// Model renders the final statistics of a run.
type Model struct {
	Stats       stats.RunStats
	Interrupted bool
}

func NewModel(rs stats.RunStats, interrupted bool) Model {
	return Model{Stats: rs, Interrupted: interrupted}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (m Model) View() string {
	var s strings.Builder
	rs := m.Stats

	title := "📊 Load Test Complete"
	if m.Interrupted {
		title = "⚠️  Load Test Interrupted"
	}
	s.WriteString(styles.Title.Render(title))
	s.WriteString("\n\n")

	s.WriteString(styles.Active.Render("Overview"))
	s.WriteString("\n")
	s.WriteString(styles.Box.Render(fmt.Sprintf(
		"Total Queries: %d\nSuccessful:    %d\nFailed:        %d\nSuccess Rate:  %s\nActual QPS:    %.2f",
		rs.Total, rs.Success, rs.Failed,
		styles.ErrorRate((1-rs.SuccessRate)*100).Render(fmt.Sprintf("%.2f%%", rs.SuccessRate*100)),
		rs.AchievedQPS,
	)))
	s.WriteString("\n\n")

	s.WriteString(styles.Active.Render("Latency (successful queries)"))
	s.WriteString("\n")
	s.WriteString(styles.Box.Render(fmt.Sprintf(
		"Fastest: %.2f ms\nSlowest: %.2f ms\nAverage: %.2f ms\nP50:     %.2f ms\nP90:     %.2f ms\nP99:     %.2f ms",
		ms(rs.MinLatency), ms(rs.MaxLatency), ms(rs.MeanLatency),
		ms(rs.P50Latency), ms(rs.P90Latency), ms(rs.P99Latency),
	)))
	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "quit"))

	return s.String()
}
