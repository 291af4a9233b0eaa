// Package events carries the bridge's outbound notifications to whatever
// presentation layer is attached. Publishing never blocks the core.
package events

import (
	"time"

	"github.com/industria/bridge/internal/devices"
)

// Event is implemented by every notification the bridge emits.
type Event interface {
	// Name is the stable event name shown to the presentation layer.
	Name() string
	isEvent()
}

// LogEntry mirrors one log line.
type LogEntry struct {
	Time    time.Time `json:"timestamp"`
	Level   string    `json:"type"`
	Message string    `json:"message"`
}

// LicenseExpired is emitted when a check finds the license inactive, and at
// startup when a stored session has no active license.
type LicenseExpired struct {
	Status  string `json:"estado"`
	Message string `json:"mensaje"`
}

// LicenseActivated is emitted on the inactive -> active edge.
type LicenseActivated struct {
	Message string `json:"mensaje"`
}

// UpdateAvailable is emitted when the server advertises a newer version.
type UpdateAvailable struct {
	CurrentVersion string `json:"currentVersion"`
	NewVersion     string `json:"newVersion"`
	ReleaseNotes   string `json:"releaseNotes"`
	DownloadURL    string `json:"downloadUrl"`
}

// JobCompleted is emitted after a job was written and acknowledged.
type JobCompleted struct {
	JobID    string `json:"jobId"`
	FileName string `json:"fileName"`
	Folder   string `json:"folder"`
}

// MachinesSynced carries the full device map after a sync.
type MachinesSynced struct {
	Devices devices.Map `json:"machines"`
}

// StatusChanged reports the connection and polling flags.
type StatusChanged struct {
	Connected bool   `json:"connected"`
	UserEmail string `json:"userEmail"`
	Polling   bool   `json:"polling"`
}

func (LogEntry) Name() string         { return "log" }
func (LicenseExpired) Name() string   { return "license-expired" }
func (LicenseActivated) Name() string { return "license-activated" }
func (UpdateAvailable) Name() string  { return "update-available" }
func (JobCompleted) Name() string     { return "job-completed" }
func (MachinesSynced) Name() string   { return "machines-synced" }
func (StatusChanged) Name() string    { return "status-changed" }

func (LogEntry) isEvent()         {}
func (LicenseExpired) isEvent()   {}
func (LicenseActivated) isEvent() {}
func (UpdateAvailable) isEvent()  {}
func (JobCompleted) isEvent()     {}
func (MachinesSynced) isEvent()   {}
func (StatusChanged) isEvent()    {}
