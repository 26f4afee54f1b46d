package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"steadydb/internal/storage"
	"steadydb/internal/tui/styles"
)

// Model is a browsable table of past runs.
type Model struct {
	Items []storage.HistoryItem
	Table table.Model
}

func NewModel(items []storage.HistoryItem) Model {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Target", Width: 30},
		{Title: "QPS", Width: 8},
		{Title: "Threads", Width: 8},
		{Title: "Queries", Width: 10},
		{Title: "Success", Width: 9},
		{Title: "Avg (ms)", Width: 9},
		{Title: "Actual QPS", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(Rows(items)),
		table.WithFocused(true),
		table.WithHeight(min(max(len(items), 1), 15)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return Model{Items: items, Table: t}
}

// Rows formats items as table rows.
func Rows(items []storage.HistoryItem) []table.Row {
	rows := make([]table.Row, len(items))
	for i, item := range items {
		sum := item.Summary
		rows[i] = table.Row{
			item.Timestamp.Local().Format("2006-01-02 15:04:05"),
			item.Target,
			fmt.Sprintf("%d", item.Config.TargetQPS),
			fmt.Sprintf("%d", item.Config.Workers),
			fmt.Sprintf("%d", sum.Total),
			fmt.Sprintf("%.1f%%", sum.SuccessRate*100),
			fmt.Sprintf("%.2f", float64(sum.MeanLatency)/float64(time.Millisecond)),
			fmt.Sprintf("%.2f", sum.AchievedQPS),
		}
	}
	return rows
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Table.SetWidth(msg.Width - 4)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.Items) == 0 {
		return styles.Subtle.Render("No runs recorded yet.") + "\n"
	}
	return styles.Title.Render("📜 Run History") + "\n\n" +
		styles.Box.Render(m.Table.View()) + "\n" +
		styles.RenderKey("↑/↓", "move") + "  " + styles.RenderKey("q", "quit") + "\n"
}
