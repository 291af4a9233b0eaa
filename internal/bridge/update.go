package bridge

import (
	"context"
	"io"

	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/metrics"
	"github.com/industria/bridge/internal/remote"
	"github.com/industria/bridge/internal/schedule"
	"github.com/industria/bridge/internal/update"
)

// UpdateInfo is the result of an update check.
type UpdateInfo struct {
	Available      bool   `json:"hasUpdate"`
	CurrentVersion string `json:"currentVersion"`
	LatestVersion  string `json:"latestVersion,omitempty"`
	ReleaseNotes   string `json:"releaseNotes,omitempty"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
}

// CheckUpdates asks the server for the latest version. It needs no session.
// A failed check is logged and reported as no update along with the error.
func (b *Bridge) CheckUpdates(ctx context.Context) (UpdateInfo, error) {
	info := UpdateInfo{CurrentVersion: b.version}

	v, err := b.gateway.FetchVersion(ctx)
	if err != nil {
		metrics.UpdateChecks.WithLabelValues("error").Inc()
		b.logger.Warn().Err(err).Msg("update check failed")
		return info, err
	}

	info.LatestVersion = v.Version
	info.ReleaseNotes = v.ReleaseNotes
	info.DownloadURL = update.ResolveURL(b.Endpoint(), v.DownloadURL)
	info.Available = update.Newer(b.version, v.Version)
	b.status.SetVersions(b.version, v.Version)

	if !info.Available {
		metrics.UpdateChecks.WithLabelValues("current").Inc()
		b.logger.Debug().Str("latest", v.Version).Msg("agent is up to date")
		return info, nil
	}
	metrics.UpdateChecks.WithLabelValues("available").Inc()
	b.logger.Info().Msgf("update available: %s (running %s)", v.Version, b.version)
	b.emitter.Emit(events.UpdateAvailable{
		CurrentVersion: b.version,
		NewVersion:     v.Version,
		ReleaseNotes:   v.ReleaseNotes,
		DownloadURL:    info.DownloadURL,
	})
	return info, nil
}

// DownloadUpdate saves the update artifact under the downloads dir and
// returns its path. It requires a session and does not apply the update.
func (b *Bridge) DownloadUpdate(ctx context.Context) (string, error) {
	if b.Token() == "" {
		return "", remote.ErrUnauthenticated
	}
	b.logger.Info().Msg("downloading update")
	path, err := update.Save(b.downloadsDir, func(w io.Writer) (int64, error) {
		return b.gateway.Download(ctx, w)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("update download failed")
		return "", err
	}
	b.logger.Info().Msgf("update downloaded to %s", path)
	return path, nil
}

// Version returns the running version and the latest one seen.
func (b *Bridge) Version() (current, latest string) {
	snap := b.status.Snapshot()
	return b.version, snap.LatestVersion
}

func (b *Bridge) startUpdateChecks() {
	b.sched.Start(schedule.Update, b.timers.Update, b.timers.UpdateDelay, func(ctx context.Context) {
		_, _ = b.CheckUpdates(ctx)
	})
}
