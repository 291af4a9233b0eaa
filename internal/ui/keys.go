package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the dashboard key bindings.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding

	ViewDevices key.Binding
	ViewLogs    key.Binding

	SyncDevices  key.Binding
	CheckLicense key.Binding
	CheckUpdate  key.Binding
	EditFolder   key.Binding
	Login        key.Binding
	Logout       key.Binding

	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	ToggleFollow key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Switch view"),
		),
		ViewDevices: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Devices"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Logs"),
		),
		SyncDevices: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Sync devices"),
		),
		CheckLicense: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Check license"),
		),
		CheckUpdate: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Check for updates"),
		),
		EditFolder: key.NewBinding(
			key.WithKeys("enter", "f"),
			key.WithHelp("enter/f", "Set device folder"),
		),
		Login: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "Log in"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Toggle follow"),
		),
	}
}
