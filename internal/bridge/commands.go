package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/remote"
	"github.com/industria/bridge/internal/schedule"
	"github.com/industria/bridge/internal/state"
	"github.com/industria/bridge/internal/store"
)

// LoginResult describes a login that reached the server.
type LoginResult struct {
	Email           string        `json:"email"`
	License         license.State `json:"license"`
	LicenseRequired bool          `json:"licenseRequired"`
}

// Login stores serverURL (the default when empty), exchanges the credentials
// for a token and checks the license. With a valid session the license
// checks start; with an active license the devices are synced and polling
// starts. An inactive license returns license.ErrInactive with the server's
// message; the session stays stored.
func (b *Bridge) Login(ctx context.Context, email, password, serverURL string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		serverURL = store.DefaultServerURL
	}

	b.mu.Lock()
	b.data.ServerURL = serverURL
	b.mu.Unlock()
	if err := b.persist(); err != nil {
		return LoginResult{}, err
	}

	b.logger.Info().Msgf("logging in as %s", email)
	token, err := b.gateway.Login(ctx, email, password)
	if err != nil {
		b.logger.Error().Msgf("login failed: %s", remote.Message(err))
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	b.mu.Lock()
	b.data.AuthToken = token
	b.data.UserEmail = email
	b.mu.Unlock()
	if err := b.persist(); err != nil {
		return LoginResult{}, err
	}
	b.logger.Info().Msgf("logged in as %s", email)
	b.publishStatus()

	// Only an inactive-to-active edge syncs devices inside CheckLicense.
	wasActive := b.License().Active
	st := b.CheckLicense(ctx)
	result := LoginResult{Email: email, License: st, LicenseRequired: !st.Active}

	if st.Status != license.StatusUnauthenticated {
		b.startLicenseChecks()
	}
	if !st.Active {
		return result, fmt.Errorf("%w: %s", license.ErrInactive, st.Message)
	}
	if wasActive {
		b.SyncDevices(ctx)
	}
	if !b.sched.Running(schedule.Poll) {
		b.startPolling()
	}
	return result, nil
}

// Logout stops polling and license checks and clears the session.
func (b *Bridge) Logout() error {
	b.stopPolling()
	b.sched.Stop(schedule.License)

	b.mu.Lock()
	b.data.AuthToken = ""
	b.data.UserEmail = ""
	b.license = license.Disconnected()
	st := b.license
	b.mu.Unlock()

	b.status.SetLicense(st)
	err := b.persist()
	b.logger.Info().Msg("logged out")
	b.publishStatus()
	return err
}

// Start runs the startup sequence: update checks always; with a stored
// session a license check, then license checks and, when active, device sync
// and polling.
func (b *Bridge) Start(ctx context.Context) {
	b.startUpdateChecks()

	if b.Token() == "" {
		b.logger.Info().Msg("no stored session; waiting for login")
		b.publishStatus()
		return
	}

	st := b.CheckLicense(ctx)
	if st.Status != license.StatusUnauthenticated {
		b.startLicenseChecks()
	}
	if st.Active {
		if !b.sched.Running(schedule.Poll) {
			b.SyncDevices(ctx)
			b.startPolling()
		}
		return
	}

	b.logger.Warn().Msgf("license not active (%s); polling disabled", st.Status)
	if st.Status != license.StatusInactive {
		b.emitter.Emit(events.LicenseExpired{Status: string(st.Status), Message: st.Message})
	}
	b.publishStatus()
}

// Shutdown stops every timer. In-flight ticks finish on their own.
func (b *Bridge) Shutdown() {
	b.stopPolling()
	b.sched.Stop(schedule.License)
	b.sched.Stop(schedule.Update)
	b.logger.Info().Msg("bridge stopped")
}

// Settings is the user-visible configuration.
type Settings struct {
	ServerURL       string      `json:"serverUrl"`
	UserEmail       string      `json:"userEmail"`
	Machines        devices.Map `json:"machines"`
	PollingInterval int         `json:"pollingInterval"`
	AutoStart       bool        `json:"autoStart"`
	MinimizeToTray  bool        `json:"minimizeToTray"`
}

// Config returns the current settings. The token is never included.
func (b *Bridge) Config() Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Settings{
		ServerURL:       b.data.ServerURL,
		UserEmail:       b.data.UserEmail,
		Machines:        b.data.Machines.Clone(),
		PollingInterval: b.data.PollingInterval,
		AutoStart:       b.data.AutoStart,
		MinimizeToTray:  b.data.MinimizeToTray,
	}
}

// SettingsPatch changes only the fields that are set.
type SettingsPatch struct {
	PollingInterval *int  `json:"pollingInterval,omitempty"`
	AutoStart       *bool `json:"autoStart,omitempty"`
	MinimizeToTray  *bool `json:"minimizeToTray,omitempty"`
}

// ErrInvalidInterval is returned for a non-positive polling interval.
var ErrInvalidInterval = errors.New("polling interval must be positive")

// SetConfig applies patch. A new polling interval restarts the poller at
// once when a session exists and polling is running or allowed.
func (b *Bridge) SetConfig(patch SettingsPatch) error {
	if patch.PollingInterval != nil && *patch.PollingInterval <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, *patch.PollingInterval)
	}

	b.mu.Lock()
	if patch.PollingInterval != nil {
		b.data.PollingInterval = *patch.PollingInterval
	}
	if patch.AutoStart != nil {
		b.data.AutoStart = *patch.AutoStart
	}
	if patch.MinimizeToTray != nil {
		b.data.MinimizeToTray = *patch.MinimizeToTray
	}
	hasSession := b.data.AuthToken != ""
	active := b.license.Active
	b.mu.Unlock()

	if err := b.persist(); err != nil {
		return err
	}
	if patch.PollingInterval != nil {
		b.logger.Info().Msgf("polling interval set to %d ms", *patch.PollingInterval)
		if hasSession && (active || b.sched.Running(schedule.Poll)) {
			b.startPolling()
		}
	}
	return nil
}

// Status returns the presentation snapshot.
func (b *Bridge) Status() state.Snapshot {
	b.status.SetPolling(b.Polling())
	return b.status.Snapshot()
}
