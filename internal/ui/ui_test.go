package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/industria/bridge/internal/bridge"
	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/state"
)

type fakeController struct {
	snap      state.Snapshot
	syncs     int
	updateErr error
	folders   map[string]string

	loginErr  error
	logins    []string
	loggedOut bool
}

func (c *fakeController) SelectFolder(path string) (string, error) {
	return "/abs" + path, nil
}

func (c *fakeController) SetDeviceFolder(id, folder string) error {
	if _, ok := c.snap.Devices[id]; !ok {
		return errors.New("device not found: " + id)
	}
	if c.folders == nil {
		c.folders = make(map[string]string)
	}
	c.folders[id] = folder
	return nil
}

func (c *fakeController) Status() state.Snapshot { return c.snap }

func (c *fakeController) SyncDevices(context.Context) devices.Map {
	c.syncs++
	return c.snap.Devices
}

func (c *fakeController) CheckLicense(context.Context) license.State {
	return c.snap.License
}

func (c *fakeController) CheckUpdates(context.Context) (bridge.UpdateInfo, error) {
	if c.updateErr != nil {
		return bridge.UpdateInfo{}, c.updateErr
	}
	return bridge.UpdateInfo{CurrentVersion: "1.0.0"}, nil
}

func (c *fakeController) Login(_ context.Context, email, password, serverURL string) (bridge.LoginResult, error) {
	c.logins = append(c.logins, email+"|"+password+"|"+serverURL)
	if c.loginErr != nil {
		return bridge.LoginResult{Email: email, License: license.State{Message: "Licencia vencida"}}, c.loginErr
	}
	c.snap.Connected = true
	c.snap.UserEmail = email
	return bridge.LoginResult{Email: email, License: license.State{Active: true, Status: license.StatusActive}}, nil
}

func (c *fakeController) Logout() error {
	c.loggedOut = true
	c.snap.Connected = false
	return nil
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model)
}

func press(t *testing.T, m Model, keys string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch keys {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestViewBeforeSize(t *testing.T) {
	m := New(Options{})
	if m.View() != "Loading..." {
		t.Fatalf("View() = %q", m.View())
	}
}

func TestSnapshotRendersDevices(t *testing.T) {
	snap := state.Snapshot{
		Connected: true,
		UserEmail: "ops@example.com",
		Polling:   true,
		License:   license.State{Active: true, Status: license.StatusActive},
		Devices: devices.Map{
			"1":  {ID: "1", Name: "Router", Vendor: "Biesse", Folder: "/cnc/router"},
			"m2": {ID: "m2", Name: "Laser", Vendor: "Trotec"},
		},
	}
	m := sized(t, New(Options{}))
	next, _ := m.Update(snapshotMsg(snap))
	m = next.(Model)

	view := m.View()
	for _, want := range []string{"Connected: ops@example.com", "license active", "Polling", "Router", "Laser", "(not configured)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestNavigation(t *testing.T) {
	m := sized(t, New(Options{}))
	next, _ := m.Update(snapshotMsg(state.Snapshot{Devices: devices.Map{
		"a": {Name: "A"}, "b": {Name: "B"}, "c": {Name: "C"},
	}}))
	m = next.(Model)

	m, _ = press(t, m, "j")
	m, _ = press(t, m, "j")
	m, _ = press(t, m, "j")
	if m.selectedRow != 2 {
		t.Fatalf("selectedRow = %d, want 2", m.selectedRow)
	}
	m, _ = press(t, m, "g")
	if m.selectedRow != 0 {
		t.Fatalf("selectedRow after g = %d", m.selectedRow)
	}

	// A shorter device list clamps the selection.
	m, _ = press(t, m, "G")
	next, _ = m.Update(snapshotMsg(state.Snapshot{Devices: devices.Map{"a": {Name: "A"}}}))
	m = next.(Model)
	if m.selectedRow != 0 {
		t.Fatalf("selectedRow after shrink = %d", m.selectedRow)
	}
}

func TestViewSwitching(t *testing.T) {
	m := sized(t, New(Options{}))
	m, _ = press(t, m, "tab")
	if m.currentView != ViewLogs {
		t.Fatalf("tab did not switch to logs")
	}
	m, _ = press(t, m, "d")
	if m.currentView != ViewDevices {
		t.Fatalf("d did not switch to devices")
	}
	m, _ = press(t, m, "?")
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("help overlay not shown")
	}
	m, _ = press(t, m, "x")
	if m.showHelp {
		t.Fatalf("any key should close help")
	}
}

func TestEventsUpdateModel(t *testing.T) {
	ch := make(chan events.Event, 4)
	m := sized(t, New(Options{Events: ch}))

	steps := []events.Event{
		events.LogEntry{Time: time.Now(), Level: "info", Message: "polling started (every 5s)"},
		events.LicenseExpired{Status: "inactive", Message: "vencida"},
		events.StatusChanged{Connected: true, UserEmail: "ops@example.com", Polling: false},
		events.MachinesSynced{Devices: devices.Map{"1": {ID: "1", Name: "Router"}}},
	}
	for _, ev := range steps {
		next, cmd := m.Update(eventMsg{event: ev})
		m = next.(Model)
		if cmd == nil {
			t.Fatalf("event %s did not re-arm the listener", ev.Name())
		}
	}

	if len(m.logs) != 1 || m.logs[0].message != "polling started (every 5s)" {
		t.Fatalf("logs = %+v", m.logs)
	}
	if m.noticeKind != "error" || !strings.Contains(m.notice, "vencida") {
		t.Fatalf("notice = %q (%s)", m.notice, m.noticeKind)
	}
	if !m.snapshot.Connected || len(m.snapshot.Devices) != 1 {
		t.Fatalf("snapshot = %+v", m.snapshot)
	}

	m, _ = press(t, m, "l")
	if !strings.Contains(m.View(), "polling started") {
		t.Fatalf("log view missing entry")
	}
}

func TestLogBufferIsBounded(t *testing.T) {
	m := sized(t, New(Options{}))
	for i := 0; i < logBufferLimit+10; i++ {
		m.appendLogs(logLine{message: "line"})
	}
	if len(m.logs) != logBufferLimit {
		t.Fatalf("buffer = %d, want %d", len(m.logs), logBufferLimit)
	}
}

func TestActions(t *testing.T) {
	c := &fakeController{updateErr: errors.New("offline")}
	m := sized(t, New(Options{Controller: c}))

	m, cmd := press(t, m, "s")
	if cmd == nil || m.busy == "" {
		t.Fatalf("sync did not start")
	}
	// A second action while busy is ignored.
	if _, again := press(t, m, "u"); again != nil {
		t.Fatalf("action started while busy")
	}
	next, _ := m.Update(cmd())
	m = next.(Model)
	if c.syncs != 1 || m.busy != "" {
		t.Fatalf("sync not completed: syncs=%d busy=%q", c.syncs, m.busy)
	}

	m, cmd = press(t, m, "u")
	next, _ = m.Update(cmd())
	m = next.(Model)
	if m.noticeKind != "error" || !strings.Contains(m.notice, "offline") {
		t.Fatalf("notice = %q", m.notice)
	}
}

func TestFolderPrompt(t *testing.T) {
	c := &fakeController{snap: state.Snapshot{Devices: devices.Map{
		"m2": {ID: "m2", Name: "Laser"},
	}}}
	m := sized(t, New(Options{Controller: c}))
	next, _ := m.Update(snapshotMsg(c.snap))
	m = next.(Model)

	m, _ = press(t, m, "f")
	if m.prompt == nil || m.prompt.deviceID != "m2" {
		t.Fatalf("prompt not opened: %+v", m.prompt)
	}
	if !strings.Contains(m.View(), "Destination folder for Laser") {
		t.Fatalf("prompt not rendered")
	}
	m, _ = press(t, m, "/cnc")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if m.prompt != nil || cmd == nil {
		t.Fatalf("enter did not submit")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)
	if c.folders["m2"] != "/abs/cnc" {
		t.Fatalf("folders = %v", c.folders)
	}
	if !strings.Contains(m.notice, "Laser -> /abs/cnc") {
		t.Fatalf("notice = %q", m.notice)
	}

	// Escape cancels without saving.
	m, _ = press(t, m, "f")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if m.prompt != nil {
		t.Fatalf("esc did not close the prompt")
	}
}

func TestLoginPrompt(t *testing.T) {
	tests := []struct {
		name       string
		loginErr   error
		wantKind   string
		wantNotice string
	}{
		{name: "active", wantKind: "info", wantNotice: "Logged in as ops@example.com"},
		{name: "inactive license", loginErr: license.ErrInactive, wantKind: "error", wantNotice: "license is not active: Licencia vencida"},
		{name: "rejected", loginErr: errors.New("bad credentials"), wantKind: "error", wantNotice: "login failed: bad credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeController{
				snap:     state.Snapshot{ServerURL: "https://factory.example"},
				loginErr: tt.loginErr,
			}
			m := sized(t, New(Options{Controller: c}))
			next, _ := m.Update(snapshotMsg(c.snap))
			m = next.(Model)

			m, _ = press(t, m, "i")
			if m.login == nil {
				t.Fatal("login prompt not opened")
			}
			if !strings.Contains(m.View(), "Log in to https://factory.example") {
				t.Fatalf("prompt not rendered")
			}
			m, _ = press(t, m, "ops@example.com")
			next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			m = next.(Model)
			if m.login == nil || m.login.focus != 1 {
				t.Fatal("enter on the email field should move to the password")
			}
			m, _ = press(t, m, "secret")
			if strings.Contains(m.View(), "secret") {
				t.Fatal("password rendered in clear text")
			}
			next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			m = next.(Model)
			if m.login != nil || cmd == nil {
				t.Fatal("enter on the password did not submit")
			}
			next, _ = m.Update(cmd())
			m = next.(Model)

			want := "ops@example.com|secret|https://factory.example"
			if len(c.logins) != 1 || c.logins[0] != want {
				t.Fatalf("logins = %v, want [%s]", c.logins, want)
			}
			if m.noticeKind != tt.wantKind || !strings.Contains(m.notice, tt.wantNotice) {
				t.Fatalf("notice = %s %q", m.noticeKind, m.notice)
			}
		})
	}
}

func TestLoginPrompt_RequiresCredentialsAndCancels(t *testing.T) {
	c := &fakeController{}
	m := sized(t, New(Options{Controller: c}))

	m, _ = press(t, m, "i")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd != nil || m.login == nil || m.noticeKind != "error" {
		t.Fatalf("empty credentials submitted: cmd=%v notice=%q", cmd != nil, m.notice)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if m.login != nil || len(c.logins) != 0 {
		t.Fatalf("esc did not cancel: logins=%v", c.logins)
	}
}

func TestLogout(t *testing.T) {
	c := &fakeController{}
	m := sized(t, New(Options{Controller: c}))
	if _, cmd := press(t, m, "L"); cmd != nil {
		t.Fatal("logout offered without a session")
	}

	c.snap = state.Snapshot{Connected: true, UserEmail: "ops@example.com"}
	next, _ := m.Update(snapshotMsg(c.snap))
	m = next.(Model)
	m, cmd := press(t, m, "L")
	if cmd == nil {
		t.Fatal("L did not start a logout")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)
	if !c.loggedOut || m.notice != "Logged out" {
		t.Fatalf("loggedOut=%v notice=%q", c.loggedOut, m.notice)
	}
}

func TestQuit(t *testing.T) {
	m := sized(t, New(Options{}))
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("missing").Name != "Dracula" {
		t.Fatalf("fallback theme wrong")
	}
	if NextTheme("Dracula") != "Slate" || NextTheme("Slate") != "Dracula" {
		t.Fatalf("theme cycle wrong")
	}
	if len(ThemeNames()) != 2 {
		t.Fatalf("ThemeNames() = %v", ThemeNames())
	}
}

func TestTruncateMiddle(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"/very/long/path/to/folder", 11, "/very…older"},
		{"abc", 2, "abc"},
	}
	for _, tt := range tests {
		if got := truncateMiddle(tt.in, tt.width); got != tt.want {
			t.Errorf("truncateMiddle(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
