package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/license"
)

// Snapshot represents the latest data available to the presentation layer.
type Snapshot struct {
	Connected bool
	UserEmail string
	ServerURL string
	// Polling is true while the poll timer runs; InProgress while a tick is
	// fetching or delivering.
	Polling    bool
	InProgress bool
	License    license.State
	Devices    devices.Map

	CurrentVersion string
	LatestVersion  string

	LastPoll            time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
	JobsDelivered       int
	LastDelivery        string
}

// IsOffline returns true when the server has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// ConnectionLabel is the short connection text for headers and tray menus.
func (s Snapshot) ConnectionLabel() string {
	if !s.Connected {
		return "Not connected"
	}
	return "Connected: " + s.UserEmail
}

// PollingLabel is "Polling" while the poller runs and "Idle" otherwise.
func (s Snapshot) PollingLabel() string {
	if s.Polling {
		return "Polling"
	}
	return "Idle"
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetSession records the connection state.
func (s *Store) SetSession(connected bool, email, serverURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connected = connected
	s.snapshot.UserEmail = email
	s.snapshot.ServerURL = serverURL
}

// SetLicense records the result of a license check.
func (s *Store) SetLicense(st license.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.License = st
}

// SetPolling records whether the poll timer is running.
func (s *Store) SetPolling(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Polling = running
}

// SetInProgress records whether a poll tick is active.
func (s *Store) SetInProgress(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.InProgress = active
}

// SetDevices replaces the device map.
func (s *Store) SetDevices(m devices.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Devices = m.Clone()
}

// SetVersions records the running and latest known versions. An empty latest
// keeps the previous value.
func (s *Store) SetVersions(current, latest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.CurrentVersion = current
	if latest != "" {
		s.snapshot.LatestVersion = latest
	}
}

// RecordPoll records the outcome of a job fetch. When err is non-nil the
// failure streak grows; a success resets it.
func (s *Store) RecordPoll(at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastPoll = at
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// RecordDelivery counts a completed job.
func (s *Store) RecordDelivery(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.JobsDelivered++
	s.snapshot.LastDelivery = path
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Devices = s.snapshot.Devices.Clone()
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
