package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/remote"
)

// loginPrompt collects credentials. The server URL is carried through from
// the snapshot so a login from the dashboard keeps the configured server.
type loginPrompt struct {
	serverURL string
	email     textinput.Model
	password  textinput.Model
	focus     int
}

func newLoginPrompt(email, serverURL string) *loginPrompt {
	e := textinput.New()
	e.Placeholder = "email"
	e.SetValue(email)
	e.CharLimit = 256
	e.Width = 48
	e.Focus()

	p := textinput.New()
	p.Placeholder = "password"
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'
	p.CharLimit = 256
	p.Width = 48

	return &loginPrompt{serverURL: serverURL, email: e, password: p}
}

func (p *loginPrompt) setFocus(i int) tea.Cmd {
	p.focus = i
	if i == 0 {
		p.password.Blur()
		return p.email.Focus()
	}
	p.email.Blur()
	return p.password.Focus()
}

func (m *Model) openLoginPrompt() tea.Cmd {
	m.login = newLoginPrompt(m.snapshot.UserEmail, m.snapshot.ServerURL)
	return textinput.Blink
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.login
	switch msg.Type {
	case tea.KeyEsc:
		m.login = nil
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		return m, p.setFocus(1 - p.focus)
	case tea.KeyEnter:
		if p.focus == 0 {
			return m, p.setFocus(1)
		}
		email := strings.TrimSpace(p.email.Value())
		password := p.password.Value()
		if email == "" || password == "" {
			m.setNotice("error", "email and password are required")
			return m, nil
		}
		m.login = nil
		return m.runAction("Logging in", loginCmd(m.ctx, m.controller, email, password, p.serverURL))
	}

	var cmd tea.Cmd
	if p.focus == 0 {
		p.email, cmd = p.email.Update(msg)
	} else {
		p.password, cmd = p.password.Update(msg)
	}
	return m, cmd
}

func (m Model) renderLoginPrompt() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Log in to " + firstNonEmpty(m.login.serverURL, "IndustrIA")))
	b.WriteString("\n\n")
	b.WriteString(m.login.email.View())
	b.WriteString("\n")
	b.WriteString(m.login.password.View())
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("tab next field · enter log in · esc cancel"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(60)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
	)
}

func loginCmd(ctx context.Context, c Controller, email, password, serverURL string) tea.Cmd {
	return func() tea.Msg {
		result, err := c.Login(ctx, email, password, serverURL)
		switch {
		case errors.Is(err, license.ErrInactive):
			return actionDoneMsg{err: fmt.Errorf("logged in as %s, but the license is not active: %s", result.Email, result.License.Message)}
		case err != nil:
			return actionDoneMsg{err: fmt.Errorf("login failed: %s", remote.Message(err))}
		}
		return actionDoneMsg{text: "Logged in as " + result.Email}
	}
}

func logoutCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		if err := c.Logout(); err != nil {
			return actionDoneMsg{err: fmt.Errorf("logout: %w", err)}
		}
		return actionDoneMsg{text: "Logged out"}
	}
}
