package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.follow = !m.follow
		if m.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.logViewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	if !m.logViewport.AtBottom() {
		m.follow = false
	}
	return m, cmd
}

// refreshLogViewport re-renders the buffered lines. It is a no-op until the
// first window size arrives.
func (m *Model) refreshLogViewport() {
	if !m.ready {
		return
	}
	m.logViewport.SetContent(m.renderLogLines())
	if m.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogLines() string {
	styles := m.theme.Styles()
	if len(m.logs) == 0 {
		return styles.MutedText.Render("No log entries yet.")
	}
	var b strings.Builder
	for i, line := range m.logs {
		if !line.at.IsZero() {
			b.WriteString(styles.MutedText.Render(line.at.Local().Format("15:04:05")))
			b.WriteString(" ")
		}
		if line.level != "" {
			b.WriteString(styles.LevelStyle(line.level).Render(pad(strings.ToUpper(line.level), 5)))
			b.WriteString(" ")
		}
		b.WriteString(styles.Text.Render(line.message))
		if i < len(m.logs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
