package statusapi

import (
	"time"

	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/state"
)

// StatusView is the JSON form of a snapshot.
type StatusView struct {
	Connected           bool        `json:"connected"`
	UserEmail           string      `json:"userEmail,omitempty"`
	ServerURL           string      `json:"serverUrl"`
	Polling             bool        `json:"polling"`
	InProgress          bool        `json:"inProgress"`
	LicenseActive       bool        `json:"licenseActive"`
	LicenseStatus       string      `json:"licenseStatus"`
	LicenseMessage      string      `json:"licenseMessage,omitempty"`
	Machines            devices.Map `json:"machines"`
	CurrentVersion      string      `json:"currentVersion"`
	LatestVersion       string      `json:"latestVersion,omitempty"`
	LastPoll            *time.Time  `json:"lastPoll,omitempty"`
	LastError           string      `json:"lastError,omitempty"`
	ConsecutiveFailures int         `json:"consecutiveFailures"`
	Offline             bool        `json:"offline"`
	JobsDelivered       int         `json:"jobsDelivered"`
	LastDelivery        string      `json:"lastDelivery,omitempty"`
}

// NewStatusView converts snap for the wire.
func NewStatusView(snap state.Snapshot) StatusView {
	view := StatusView{
		Connected:           snap.Connected,
		UserEmail:           snap.UserEmail,
		ServerURL:           snap.ServerURL,
		Polling:             snap.Polling,
		InProgress:          snap.InProgress,
		LicenseActive:       snap.License.Active,
		LicenseStatus:       string(snap.License.Status),
		LicenseMessage:      snap.License.Message,
		Machines:            snap.Devices,
		CurrentVersion:      snap.CurrentVersion,
		LatestVersion:       snap.LatestVersion,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		Offline:             snap.IsOffline(),
		JobsDelivered:       snap.JobsDelivered,
		LastDelivery:        snap.LastDelivery,
	}
	if view.Machines == nil {
		view.Machines = devices.Map{}
	}
	if !snap.LastPoll.IsZero() {
		at := snap.LastPoll
		view.LastPoll = &at
	}
	if snap.LastError != nil {
		view.LastError = snap.LastError.Error()
	}
	return view
}
