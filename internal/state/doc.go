// Package state provides the thread-safe status snapshot shared between the
// bridge core and whatever presents it (TUI, status API, CLI).
//
// # Overview
//
// The bridge writes pieces of the snapshot as things happen: session changes,
// license checks, poll ticks, deliveries, device syncs, version checks.
// Readers take a Snapshot whenever they render. The Store mediates between
// the timer goroutines and the readers:
//
//	Writers (bridge timers):       Readers (TUI, /status):
//	┌────────────────────┐        ┌────────────────────┐
//	│ SetLicense()       │        │                    │
//	│ RecordPoll()       │───────→│ store.Snapshot()   │
//	│ RecordDelivery()   │ (mutex)│        ↓           │
//	│ SetDevices()       │        │ render             │
//	└────────────────────┘        └────────────────────┘
//
// # Copying
//
// Snapshot returns the device map cloned and the last error re-wrapped, so
// readers can keep a snapshot without racing later writes.
//
// # Failure streak
//
// RecordPoll with an error keeps the previous data and increments
// ConsecutiveFailures; a success resets it. IsOffline reports two or more
// failures in a row.
//
// # Zero value
//
// The Store is ready to use as a zero value:
//
//	store := &state.Store{}
package state
