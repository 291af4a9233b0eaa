package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/industria/bridge/internal/bridge"
	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/logtail"
	"github.com/industria/bridge/internal/state"
)

// View is the active dashboard pane.
type View int

const (
	ViewDevices View = iota
	ViewLogs
)

const (
	logBufferLimit = 1000
	logHistory     = 200
)

// Controller is the slice of the bridge the dashboard drives.
type Controller interface {
	Status() state.Snapshot
	SyncDevices(ctx context.Context) devices.Map
	CheckLicense(ctx context.Context) license.State
	CheckUpdates(ctx context.Context) (bridge.UpdateInfo, error)
	SelectFolder(path string) (string, error)
	SetDeviceFolder(id, folder string) error
	Login(ctx context.Context, email, password, serverURL string) (bridge.LoginResult, error)
	Logout() error
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	Events     <-chan events.Event
	LogPath    string
	PollTick   time.Duration
	ThemeName  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx        context.Context
	controller Controller
	events     <-chan events.Event
	logPath    string
	pollTick   time.Duration
	keys       keyMap

	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	prompt      *folderPrompt
	login       *loginPrompt

	snapshot    state.Snapshot
	selectedRow int

	logs        []logLine
	logViewport viewport.Model
	follow      bool

	notice     string
	noticeKind string
	busy       string
}

type logLine struct {
	at      time.Time
	level   string
	message string
}

// New creates the dashboard model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}
	return Model{
		ctx:        ctx,
		controller: opts.Controller,
		events:     opts.Events,
		logPath:    opts.LogPath,
		pollTick:   pollTick,
		keys:       DefaultKeyMap(),
		theme:      GetTheme(themeName),
		follow:     true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.controller != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.controller))
	}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	if m.logPath != "" {
		cmds = append(cmds, loadLogHistoryCmd(m.logPath))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.contentHeight())
		} else {
			m.logViewport.Width = msg.Width
			m.logViewport.Height = m.contentHeight()
		}
		m.ready = true
		m.refreshLogViewport()
		return m, nil

	case tickMsg:
		if m.controller == nil {
			return m, tickCmd(m.pollTick)
		}
		return m, tea.Batch(fetchSnapshotCmd(m.controller), tickCmd(m.pollTick))

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.clampSelection()
		return m, nil

	case eventMsg:
		m.handleEvent(msg.event)
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case logHistoryMsg:
		m.appendLogs(msg...)
		return m, nil

	case actionDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.setNotice("error", msg.err.Error())
		} else if msg.text != "" {
			m.setNotice("info", msg.text)
		}
		if m.controller != nil {
			return m, fetchSnapshotCmd(m.controller)
		}
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.prompt != nil {
		return m.renderPrompt()
	}
	if m.login != nil {
		return m.renderLoginPrompt()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.logViewport.View())
	default:
		b.WriteString(m.renderDevices())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.prompt != nil {
		return m.handlePromptKey(msg)
	}
	if m.login != nil {
		return m.handleLoginKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		if m.currentView == ViewDevices {
			m.currentView = ViewLogs
		} else {
			m.currentView = ViewDevices
		}
		return m, nil
	case key.Matches(msg, m.keys.ViewDevices):
		m.currentView = ViewDevices
		return m, nil
	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, nil
	case key.Matches(msg, m.keys.SyncDevices):
		return m.runAction("Syncing devices", syncDevicesCmd(m.ctx, m.controller))
	case key.Matches(msg, m.keys.CheckLicense):
		return m.runAction("Checking license", checkLicenseCmd(m.ctx, m.controller))
	case key.Matches(msg, m.keys.CheckUpdate):
		return m.runAction("Checking for updates", checkUpdatesCmd(m.ctx, m.controller))
	case key.Matches(msg, m.keys.Login):
		if m.controller == nil || m.busy != "" {
			return m, nil
		}
		return m, m.openLoginPrompt()
	case key.Matches(msg, m.keys.Logout):
		if !m.snapshot.Connected {
			return m, nil
		}
		return m.runAction("Logging out", logoutCmd(m.controller))
	}

	if m.currentView == ViewLogs {
		return m.handleLogsKey(msg)
	}
	return m.handleDevicesKey(msg)
}

func (m Model) runAction(label string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.controller == nil || m.busy != "" {
		return m, nil
	}
	m.busy = label
	return m, cmd
}

func (m Model) handleDevicesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.snapshot.Devices)
	if count == 0 {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = count - 1
	case key.Matches(msg, m.keys.EditFolder):
		if m.controller == nil || m.busy != "" {
			return m, nil
		}
		return m, m.openFolderPrompt()
	}
	return m, nil
}

func (m *Model) clampSelection() {
	count := len(m.snapshot.Devices)
	if m.selectedRow >= count {
		m.selectedRow = max(count-1, 0)
	}
}

func (m *Model) handleEvent(ev events.Event) {
	switch e := ev.(type) {
	case events.LogEntry:
		m.appendLogs(logLine{at: e.Time, level: e.Level, message: e.Message})
	case events.LicenseExpired:
		m.setNotice("error", "License not active: "+firstNonEmpty(e.Message, e.Status))
	case events.LicenseActivated:
		m.setNotice("info", "License active")
	case events.UpdateAvailable:
		m.setNotice("warn", fmt.Sprintf("Update available: %s (running %s)", e.NewVersion, e.CurrentVersion))
	case events.JobCompleted:
		m.setNotice("info", fmt.Sprintf("Job %s delivered to %s", e.JobID, e.Folder))
	case events.MachinesSynced:
		m.snapshot.Devices = e.Devices.Clone()
		m.clampSelection()
	case events.StatusChanged:
		m.snapshot.Connected = e.Connected
		m.snapshot.UserEmail = e.UserEmail
		m.snapshot.Polling = e.Polling
	}
}

func (m *Model) setNotice(kind, text string) {
	m.noticeKind = kind
	m.notice = text
}

func (m *Model) appendLogs(lines ...logLine) {
	m.logs = append(m.logs, lines...)
	if over := len(m.logs) - logBufferLimit; over > 0 {
		m.logs = append([]logLine(nil), m.logs[over:]...)
	}
	m.refreshLogViewport()
}

func (m Model) contentHeight() int {
	// header, command bar and footer
	return max(m.height-3, 1)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type eventMsg struct{ event events.Event }

type eventsClosedMsg struct{}

type logHistoryMsg []logLine

type actionDoneMsg struct {
	text string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(c.Status())
	}
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func loadLogHistoryCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logHistory, "info")
		if err != nil {
			return logHistoryMsg{{at: time.Now(), level: "error", message: "read log file: " + err.Error()}}
		}
		lines := make(logHistoryMsg, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, logLine{at: e.Time, level: e.Level, message: e.Message})
		}
		return lines
	}
}

func syncDevicesCmd(ctx context.Context, c Controller) tea.Cmd {
	return func() tea.Msg {
		synced := c.SyncDevices(ctx)
		return actionDoneMsg{text: fmt.Sprintf("%d device(s) known", len(synced))}
	}
}

func checkLicenseCmd(ctx context.Context, c Controller) tea.Cmd {
	return func() tea.Msg {
		st := c.CheckLicense(ctx)
		if st.Status == license.StatusError {
			return actionDoneMsg{err: errors.New("license check failed: " + st.Message)}
		}
		return actionDoneMsg{text: "License: " + string(st.Status)}
	}
}

func checkUpdatesCmd(ctx context.Context, c Controller) tea.Cmd {
	return func() tea.Msg {
		info, err := c.CheckUpdates(ctx)
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("update check failed: %w", err)}
		}
		if !info.Available {
			return actionDoneMsg{text: "Up to date (" + info.CurrentVersion + ")"}
		}
		return actionDoneMsg{text: "Update available: " + info.LatestVersion}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is canceled.
func Run(ctx context.Context, opts Options) error {
	if opts.Controller == nil {
		return errors.New("ui requires a controller")
	}
	if opts.Context == nil {
		opts.Context = ctx
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
