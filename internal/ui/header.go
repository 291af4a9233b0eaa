package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/industria/bridge/internal/devices"
)

const logo = "IndustrIA Bridge"

// renderHeader renders logo, connection, license and polling state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	connection := styles.DangerText.Render("● " + snap.ConnectionLabel())
	if snap.Connected {
		connection = styles.SuccessText.Render("● " + snap.ConnectionLabel())
	}

	status := string(snap.License.Status)
	if status == "" {
		status = "unknown"
	}
	licenseBadge := styles.LicenseStyle(status).Render("license " + status)

	polling := styles.MutedText.Render(snap.PollingLabel())
	if snap.InProgress {
		polling = styles.InfoText.Render("Fetching")
	} else if snap.Polling {
		polling = styles.SuccessText.Render(snap.PollingLabel())
	}

	parts := []string{
		styles.Logo.Render(logo),
		connection,
		licenseBadge,
		polling,
	}
	if snap.IsOffline() {
		parts = append(parts, styles.DangerText.Render(fmt.Sprintf("OFFLINE (%d failures)", snap.ConsecutiveFailures)))
	}
	if !snap.LastPoll.IsZero() {
		parts = append(parts, styles.MutedText.Render("last poll "+relativeTime(snap.LastPoll, time.Now())))
	}
	return styles.Header.Width(max(m.width, 1)).Render(strings.Join(parts, "  "))
}

// renderCommandBar lists the main keys.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	items := []struct{ key, label string }{
		{"d", "Devices"},
		{"l", "Logs"},
		{"f", "Folder"},
		{"s", "Sync"},
		{"c", "License"},
		{"u", "Update"},
		{"i", "Login"},
		{"?", "Help"},
		{"q", "Quit"},
	}
	var parts []string
	for _, item := range items {
		label := styles.MutedText.Render(item.label)
		if (item.key == "d" && m.currentView == ViewDevices) || (item.key == "l" && m.currentView == ViewLogs) {
			label = styles.AccentText.Bold(true).Render(item.label)
		}
		parts = append(parts, styles.WarningText.Render(item.key)+" "+label)
	}
	return strings.Join(parts, "  ")
}

// renderFooter shows the latest notice, the running action and versions.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	var left string
	switch {
	case m.busy != "":
		left = styles.InfoText.Render(m.busy + "...")
	case m.notice != "":
		switch m.noticeKind {
		case "error":
			left = styles.DangerText.Render(m.notice)
		case "warn":
			left = styles.WarningText.Render(m.notice)
		default:
			left = styles.Text.Render(m.notice)
		}
	}

	version := m.snapshot.CurrentVersion
	if latest := m.snapshot.LatestVersion; latest != "" && latest != version {
		version += " → " + latest
	}
	right := styles.MutedText.Render(fmt.Sprintf("jobs %d  v%s", m.snapshot.JobsDelivered, version))

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.Footer.Render(left + strings.Repeat(" ", gap) + right)
}

// renderDevices renders the device table with the selected row highlighted.
func (m Model) renderDevices() string {
	styles := m.theme.Styles()
	rows := sortedDevices(m.snapshot.Devices)
	height := m.contentHeight()

	if len(rows) == 0 {
		msg := "No devices yet. Log in and press s to sync."
		return lipgloss.Place(max(m.width, 1), height, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	idW, nameW, vendorW := 8, 24, 16
	folderW := max(m.width-idW-nameW-vendorW-4, 10)

	var b strings.Builder
	header := pad("ID", idW) + " " + pad("NAME", nameW) + " " + pad("VENDOR", vendorW) + " " + "FOLDER"
	b.WriteString(styles.AccentText.Bold(true).Render(header))
	b.WriteString("\n")

	for i, dev := range rows {
		folder := dev.Folder
		folderStyle := styles.Text
		if strings.TrimSpace(folder) == "" {
			folder = "(not configured)"
			folderStyle = styles.WarningText
		}
		line := pad(dev.ID, idW) + " " + pad(dev.Name, nameW) + " " + pad(dev.Vendor, vendorW) + " "
		if i == m.selectedRow {
			b.WriteString(styles.Selected.Render(line + truncateMiddle(folder, folderW)))
		} else {
			b.WriteString(styles.Text.Render(line) + folderStyle.Render(truncateMiddle(folder, folderW)))
		}
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return lipgloss.NewStyle().Height(height).MaxHeight(height).Render(b.String())
}

func sortedDevices(m devices.Map) []devices.Device {
	out := make([]devices.Device, 0, len(m))
	for id, dev := range m {
		dev.ID = id
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func pad(s string, width int) string {
	s = truncate(s, width)
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func truncateMiddle(s string, width int) string {
	r := []rune(s)
	if len(r) <= width || width < 5 {
		return s
	}
	head := (width - 1) / 2
	tail := width - 1 - head
	return string(r[:head]) + "…" + string(r[len(r)-tail:])
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < 0:
		return t.Format("15:04:05")
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return t.Format("15:04:05")
	}
}
