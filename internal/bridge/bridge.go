package bridge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/industria/bridge/internal/clock"
	"github.com/industria/bridge/internal/delivery"
	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/remote"
	"github.com/industria/bridge/internal/schedule"
	"github.com/industria/bridge/internal/state"
	"github.com/industria/bridge/internal/store"
)

// Persister loads and saves the session store.
type Persister interface {
	Load() (store.Data, error)
	Save(store.Data) error
}

// Timers holds the fixed periods of the license and update checks.
type Timers struct {
	License     time.Duration
	Update      time.Duration
	UpdateDelay time.Duration
}

// DefaultTimers returns the production periods.
func DefaultTimers() Timers {
	return Timers{
		License:     time.Hour,
		Update:      6 * time.Hour,
		UpdateDelay: 10 * time.Second,
	}
}

// Options wires a Bridge. Store and Scheduler are required.
type Options struct {
	Store        Persister
	Scheduler    schedule.Scheduler
	Events       events.Emitter
	Status       *state.Store
	Recorder     delivery.Recorder
	Clock        clock.Clock
	Logger       zerolog.Logger
	Version      string
	DownloadsDir string
	Timers       Timers
	Remote       remote.Options
}

// Bridge owns the session, the license state and the timers. All mutable
// state is guarded by mu, which is never held across network or file calls.
type Bridge struct {
	mu      sync.Mutex
	data    store.Data
	license license.State

	// persistMu orders saves so an older clone never overwrites a newer one.
	persistMu sync.Mutex

	persister    Persister
	gateway      *remote.Gateway
	pipeline     *delivery.Pipeline
	sched        schedule.Scheduler
	emitter      events.Emitter
	status       *state.Store
	clock        clock.Clock
	logger       zerolog.Logger
	version      string
	downloadsDir string
	timers       Timers
}

type discard struct{}

func (discard) Emit(events.Event) {}

// New builds a Bridge from the persisted session.
func New(opts Options) (*Bridge, error) {
	if opts.Store == nil {
		return nil, errors.New("bridge: store is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("bridge: scheduler is required")
	}
	data, err := opts.Store.Load()
	switch {
	case errors.Is(err, store.ErrCorrupt):
		opts.Logger.Warn().Err(err).Msg("session store unreadable; starting from defaults")
	case err != nil:
		return nil, fmt.Errorf("load store: %w", err)
	}

	b := &Bridge{
		data:         data,
		license:      license.Initial(),
		persister:    opts.Store,
		sched:        opts.Scheduler,
		emitter:      opts.Events,
		status:       opts.Status,
		clock:        opts.Clock,
		logger:       opts.Logger,
		version:      opts.Version,
		downloadsDir: opts.DownloadsDir,
		timers:       opts.Timers,
	}
	if b.emitter == nil {
		b.emitter = discard{}
	}
	if b.status == nil {
		b.status = &state.Store{}
	}
	if b.clock == nil {
		b.clock = clock.Real()
	}
	if b.version == "" {
		b.version = "dev"
	}
	defaults := DefaultTimers()
	if b.timers.License <= 0 {
		b.timers.License = defaults.License
	}
	if b.timers.Update <= 0 {
		b.timers.Update = defaults.Update
	}
	if b.timers.UpdateDelay < 0 {
		b.timers.UpdateDelay = defaults.UpdateDelay
	}

	remoteOpts := opts.Remote
	remoteOpts.Logger = b.logger
	if remoteOpts.UserAgent == "" {
		remoteOpts.UserAgent = "bridge/" + b.version
	}
	b.gateway = remote.New(b, remoteOpts)

	pipelineOpts := []delivery.Option{delivery.WithClock(b.clock)}
	if opts.Recorder != nil {
		pipelineOpts = append(pipelineOpts, delivery.WithRecorder(opts.Recorder))
	}
	b.pipeline = delivery.New(b, b.gateway, b.emitter, b.logger, pipelineOpts...)

	b.status.SetSession(data.AuthToken != "", data.UserEmail, data.ServerURL)
	b.status.SetDevices(data.Machines)
	b.status.SetLicense(b.license)
	b.status.SetVersions(b.version, "")
	return b, nil
}

// Endpoint implements remote.Session.
func (b *Bridge) Endpoint() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.ServerURL
}

// Token implements remote.Session.
func (b *Bridge) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.AuthToken
}

// Invalidate implements remote.Session. Only the rejected token is cleared,
// so a rejection that races with a new login leaves the new session alone.
func (b *Bridge) Invalidate(token string) {
	b.mu.Lock()
	if token == "" || b.data.AuthToken != token {
		b.mu.Unlock()
		return
	}
	b.data.AuthToken = ""
	b.mu.Unlock()

	b.logger.Warn().Msg("session rejected by server; log in again")
	if err := b.persist(); err != nil {
		b.logger.Error().Err(err).Msg("save store failed")
	}
	b.publishStatus()
}

// DeviceFolder implements delivery.FolderResolver.
func (b *Bridge) DeviceFolder(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Machines.Folder(id)
}

// License returns the current license state.
func (b *Bridge) License() license.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.license
}

// Devices returns a copy of the device map.
func (b *Bridge) Devices() devices.Map {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Machines.Clone()
}

// Gateway exposes the remote gateway for read-only CLI commands.
func (b *Bridge) Gateway() *remote.Gateway { return b.gateway }

// Polling reports whether the job poller is running.
func (b *Bridge) Polling() bool {
	return b.sched.Running(schedule.Poll)
}

func (b *Bridge) persist() error {
	b.persistMu.Lock()
	defer b.persistMu.Unlock()

	b.mu.Lock()
	data := b.data.Clone()
	b.mu.Unlock()

	if err := b.persister.Save(data); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	return nil
}

// publishStatus refreshes the snapshot and emits StatusChanged.
func (b *Bridge) publishStatus() {
	b.mu.Lock()
	connected := b.data.AuthToken != ""
	email := b.data.UserEmail
	server := b.data.ServerURL
	b.mu.Unlock()

	polling := b.Polling()
	b.status.SetSession(connected, email, server)
	b.status.SetPolling(polling)
	b.emitter.Emit(events.StatusChanged{Connected: connected, UserEmail: email, Polling: polling})
}
