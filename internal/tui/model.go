package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"steadydb/internal/runner"
	"steadydb/internal/stats"
	"steadydb/internal/tui/live"
	"steadydb/internal/tui/result"
	"steadydb/internal/tui/styles"
)

type progressMsg runner.Progress

type progressClosedMsg struct{}

type doneMsg stats.RunStats

// Model shows the live dashboard of a run and then its results. Quitting
// while the run is active interrupts it and waits for the workers to stop.
type Model struct {
	title    string
	progress <-chan runner.Progress
	await    func() stats.RunStats
	cancel   context.CancelFunc

	live   live.Model
	result result.Model

	interrupted bool
	done        bool
	stats       stats.RunStats
}

func NewModel(title string, cfg runner.Config, progress <-chan runner.Progress, await func() stats.RunStats, cancel context.CancelFunc) Model {
	return Model{
		title:    title,
		progress: progress,
		await:    await,
		cancel:   cancel,
		live:     live.NewModel(cfg.Duration, cfg.TargetQPS),
	}
}

// Stats returns the final statistics once the run is done.
func (m Model) Stats() (stats.RunStats, bool) {
	return m.stats, m.done
}

func waitForProgress(ch <-chan runner.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return progressClosedMsg{}
		}
		return progressMsg(p)
	}
}

func awaitCompletion(await func() stats.RunStats) tea.Cmd {
	return func() tea.Msg {
		return doneMsg(await())
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForProgress(m.progress), awaitCompletion(m.await))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.interrupted {
				m.interrupted = true
				m.cancel()
			}
		}
		return m, nil

	case progressMsg:
		var cmd tea.Cmd
		m.live, cmd = m.live.Update(runner.Progress(msg))
		return m, tea.Batch(cmd, waitForProgress(m.progress))

	case progressClosedMsg:
		return m, nil

	case doneMsg:
		m.done = true
		m.stats = stats.RunStats(msg)
		m.result = result.NewModel(m.stats, m.interrupted)
		return m, nil

	case tea.WindowSizeMsg, progress.FrameMsg:
		var cmd tea.Cmd
		m.live, cmd = m.live.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(styles.Title.Render("🚀 " + m.title))
	s.WriteString("\n\n")

	if m.done {
		s.WriteString(m.result.View())
		return s.String()
	}

	s.WriteString(m.live.View())
	s.WriteString("\n")
	if m.interrupted {
		s.WriteString(styles.Warn.Render("Interrupting, waiting for in-flight queries..."))
	} else {
		s.WriteString(styles.RenderKey("q", "stop run"))
	}
	return s.String()
}

// Run drives the dashboard until the user quits after the run finished.
func Run(m Model) (stats.RunStats, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return stats.RunStats{}, err
	}
	rs, _ := final.(Model).Stats()
	return rs, nil
}
