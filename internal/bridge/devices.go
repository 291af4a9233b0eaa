package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/industria/bridge/internal/config"
	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/metrics"
)

// ErrDeviceNotFound is returned when a folder is set for an unknown device.
var ErrDeviceNotFound = errors.New("device not found")

// SyncDevices merges the server's device list into the local map, persists
// it and emits MachinesSynced. Failures are logged and leave the map as it
// was; the current map is returned either way.
func (b *Bridge) SyncDevices(ctx context.Context) devices.Map {
	incoming, err := b.gateway.FetchDevices(ctx)
	if err != nil {
		metrics.DeviceSyncs.WithLabelValues("error").Inc()
		b.logger.Error().Err(err).Msg("device sync failed")
		return b.Devices()
	}

	b.mu.Lock()
	b.data.Machines = devices.Merge(b.data.Machines, incoming)
	merged := b.data.Machines.Clone()
	b.mu.Unlock()

	if err := b.persist(); err != nil {
		b.logger.Error().Err(err).Msg("save store failed")
	}
	metrics.DeviceSyncs.WithLabelValues("ok").Inc()
	b.status.SetDevices(merged)
	b.emitter.Emit(events.MachinesSynced{Devices: merged})
	b.logger.Info().Msgf("synced %d device(s)", len(incoming))
	return merged
}

// SetDeviceFolder assigns folder to a known device. An empty folder clears it.
func (b *Bridge) SetDeviceFolder(id, folder string) error {
	folder = strings.TrimSpace(folder)

	b.mu.Lock()
	dev, ok := b.data.Machines[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	dev.Folder = folder
	b.data.Machines[id] = dev
	merged := b.data.Machines.Clone()
	b.mu.Unlock()

	if err := b.persist(); err != nil {
		return err
	}
	b.status.SetDevices(merged)
	if folder == "" {
		b.logger.Info().Msgf("folder cleared for %s", deviceLabel(dev))
	} else {
		b.logger.Info().Msgf("folder for %s set to %s", deviceLabel(dev), folder)
	}
	return nil
}

// SelectFolder resolves path to an absolute directory, creating it when it
// does not exist yet, and returns it for use with SetDeviceFolder.
func (b *Bridge) SelectFolder(path string) (string, error) {
	abs, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("select folder: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", fmt.Errorf("select folder: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("select folder: %w", err)
	case !info.IsDir():
		return "", fmt.Errorf("select folder: %s is not a directory", abs)
	}
	return abs, nil
}

func deviceLabel(dev devices.Device) string {
	if dev.Name != "" {
		return dev.Name
	}
	return dev.ID
}
