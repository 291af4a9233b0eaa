package state

import (
	"errors"
	"testing"
	"time"

	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/license"
)

func TestStore_SnapshotClonesDevices(t *testing.T) {
	var s Store

	s.SetDevices(devices.Map{"m1": {ID: "m1", Folder: "/a"}})
	snap := s.Snapshot()
	snap.Devices["m1"] = devices.Device{ID: "m1", Folder: "/changed"}

	if got := s.Snapshot().Devices["m1"].Folder; got != "/a" {
		t.Fatalf("Snapshot should clone devices; got %q want /a", got)
	}
}

func TestStore_RecordPollTracksFailureStreak(t *testing.T) {
	var s Store
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	origErr := errors.New("boom")
	s.RecordPoll(at, origErr)
	s.RecordPoll(at.Add(time.Second), origErr)

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("failures = %d offline=%v, want 2/true", snap.ConsecutiveFailures, snap.IsOffline())
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError = %v, want wrapped %v", snap.LastError, origErr)
	}
	if snap.LastError == origErr {
		t.Fatalf("LastError should be a copy, got original pointer")
	}

	s.RecordPoll(at.Add(2*time.Second), nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.LastError != nil || snap.IsOffline() {
		t.Fatalf("success did not reset failure state: %#v", snap)
	}
	if !snap.LastPoll.Equal(at.Add(2 * time.Second)) {
		t.Fatalf("LastPoll = %v", snap.LastPoll)
	}
}

func TestStore_Labels(t *testing.T) {
	var s Store
	if got := s.Snapshot().ConnectionLabel(); got != "Not connected" {
		t.Fatalf("ConnectionLabel = %q", got)
	}
	if got := s.Snapshot().PollingLabel(); got != "Idle" {
		t.Fatalf("PollingLabel = %q", got)
	}

	s.SetSession(true, "ana@example.com", "https://industria.app")
	s.SetPolling(true)
	snap := s.Snapshot()
	if snap.ConnectionLabel() != "Connected: ana@example.com" || snap.PollingLabel() != "Polling" {
		t.Fatalf("labels = %q / %q", snap.ConnectionLabel(), snap.PollingLabel())
	}
}

func TestStore_SetVersionsKeepsLatest(t *testing.T) {
	var s Store
	s.SetVersions("1.0.0", "1.1.0")
	s.SetVersions("1.0.0", "")
	snap := s.Snapshot()
	if snap.CurrentVersion != "1.0.0" || snap.LatestVersion != "1.1.0" {
		t.Fatalf("versions = %q/%q", snap.CurrentVersion, snap.LatestVersion)
	}
}

func TestStore_LicenseAndDeliveries(t *testing.T) {
	var s Store
	s.SetLicense(license.State{Active: true, Status: license.StatusActive})
	s.RecordDelivery("/a/x.nc")
	s.RecordDelivery("/a/y.nc")

	snap := s.Snapshot()
	if !snap.License.Active || snap.JobsDelivered != 2 || snap.LastDelivery != "/a/y.nc" {
		t.Fatalf("snapshot = %#v", snap)
	}
}
