package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// folderPrompt edits the destination folder of one device.
type folderPrompt struct {
	deviceID string
	label    string
	input    textinput.Model
}

func newFolderPrompt(deviceID, label, current string) *folderPrompt {
	in := textinput.New()
	in.Placeholder = "/path/to/folder (empty clears it)"
	in.SetValue(current)
	in.CharLimit = 1024
	in.Width = 60
	in.Focus()
	return &folderPrompt{deviceID: deviceID, label: label, input: in}
}

// openFolderPrompt starts editing the selected device's folder.
func (m *Model) openFolderPrompt() tea.Cmd {
	rows := sortedDevices(m.snapshot.Devices)
	if len(rows) == 0 || m.selectedRow >= len(rows) {
		return nil
	}
	dev := rows[m.selectedRow]
	label := dev.Name
	if label == "" {
		label = dev.ID
	}
	m.prompt = newFolderPrompt(dev.ID, label, dev.Folder)
	return textinput.Blink
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = nil
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		p := m.prompt
		m.prompt = nil
		return m.runAction("Saving folder", setFolderCmd(m.controller, p.deviceID, p.label, p.input.Value()))
	}

	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return m, cmd
}

func (m Model) renderPrompt() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Destination folder for " + m.prompt.label))
	b.WriteString("\n\n")
	b.WriteString(m.prompt.input.View())
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("enter save · esc cancel · missing folders are created"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(72)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
	)
}

func setFolderCmd(c Controller, id, label, path string) tea.Cmd {
	return func() tea.Msg {
		path = strings.TrimSpace(path)
		if path == "" {
			if err := c.SetDeviceFolder(id, ""); err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{text: "Folder cleared for " + label}
		}
		folder, err := c.SelectFolder(path)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if err := c.SetDeviceFolder(id, folder); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: fmt.Sprintf("%s -> %s", label, folder)}
	}
}
