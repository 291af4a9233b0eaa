// Package ui implements the terminal dashboard for the bridge using Bubble Tea.
//
// # Views
//
//   - Devices: every known device with its vendor and destination folder.
//     Devices without a folder are highlighted; their jobs stay pending.
//     Enter or f opens a prompt to set the selected device's folder; a
//     missing directory is created.
//   - Logs: the last entries of the log file followed by live log events.
//
// The header shows the connection label, the license badge and whether the
// poller runs. The footer shows the latest notice (license expiry, update
// availability, completed jobs) and the delivered job count.
//
// i opens a login prompt (email and a masked password) against the server
// in the snapshot; L logs out. Both act on the agent the dashboard runs in,
// so its timers follow the session at once.
//
// # Data Flow
//
// The model reads a state.Snapshot from the Controller on every tick
// (default one second) and consumes the event channel one message at a time
// through waitForEvent. Actions such as a device sync run as tea.Cmds so
// the event loop never blocks on the network; only one action runs at a time.
//
// # Keys
//
// See keys.go; h or ? shows the overlay.
package ui
