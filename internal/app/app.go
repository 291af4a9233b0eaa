package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/industria/bridge/internal/bridge"
	"github.com/industria/bridge/internal/clock"
	"github.com/industria/bridge/internal/config"
	"github.com/industria/bridge/internal/delivery"
	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/journal"
	"github.com/industria/bridge/internal/logging"
	"github.com/industria/bridge/internal/remote"
	"github.com/industria/bridge/internal/schedule"
	"github.com/industria/bridge/internal/state"
	"github.com/industria/bridge/internal/statusapi"
	"github.com/industria/bridge/internal/store"
	"github.com/industria/bridge/internal/ui"
)

// ErrAgentRunning is returned by Build in agent mode when another agent
// already answers for the same store.
var ErrAgentRunning = errors.New("agent already running")

// Mode selects how timers behave.
type Mode int

const (
	// ModeAgent runs real timers under the supervisor.
	ModeAgent Mode = iota
	// ModeCommand is for one-shot CLI commands: timers are recorded but never
	// fire, so a command exits as soon as its work is done.
	ModeCommand
)

// Options configure the application.
type Options struct {
	ConfigPath string
	Version    string
	Mode       Mode
	// Quiet drops console logging; the log file and the event bus still
	// receive every entry. The dashboard needs this to own the terminal.
	Quiet bool
	// LogLevel overrides the configured level when set.
	LogLevel string
}

// App is the composition root.
type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Bus     *events.Bus
	Bridge  *bridge.Bridge
	Journal *journal.Journal

	supervisor *schedule.Supervisor
	closers    []io.Closer
}

// Build loads configuration and wires every component. Close releases the
// log file and the journal.
func Build(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Mode == ModeAgent {
		if _, info, err := FindAgent(context.Background(), cfg); err == nil {
			return nil, fmt.Errorf("%w (pid %d, %s)", ErrAgentRunning, info.PID, info.Addr)
		}
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	var console io.Writer = os.Stderr
	if opts.Quiet {
		console = io.Discard
	}
	logger, logCloser, err := logging.Init(logging.Config{
		Level:  level,
		Format: cfg.Log.Format,
		File:   cfg.LogPath(),
		Output: console,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	bus := events.NewBus()
	logger = logger.Hook(bus.LogHook())

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Bus:     bus,
		closers: []io.Closer{logCloser},
	}

	clk := clock.Real()
	var sched schedule.Scheduler
	if opts.Mode == ModeAgent {
		a.supervisor = schedule.NewSupervisor(clk, logger)
		sched = a.supervisor
	} else {
		sched = schedule.NewManual()
	}

	var recorder delivery.Recorder
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("delivery journal unavailable; continuing without it")
		} else {
			logger.Debug().Str("path", j.Path()).Msg("delivery journal opened")
			a.Journal = j
			a.closers = append(a.closers, j)
			recorder = j
		}
	}

	b, err := bridge.New(bridge.Options{
		Store:        store.NewFile(cfg.StorePath),
		Scheduler:    sched,
		Events:       bus,
		Status:       &state.Store{},
		Recorder:     recorder,
		Clock:        clk,
		Logger:       logger,
		Version:      opts.Version,
		DownloadsDir: cfg.DownloadsDir,
		Timers: bridge.Timers{
			License:     cfg.Timers.LicenseInterval,
			Update:      cfg.Timers.UpdateInterval,
			UpdateDelay: cfg.Timers.UpdateInitialDelay,
		},
		Remote: remote.Options{
			Timeout:         cfg.Remote.Timeout,
			UserAgent:       cfg.Remote.UserAgent,
			BreakerFailures: cfg.Breaker.Failures,
			BreakerTimeout:  cfg.Breaker.Timeout,
		},
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Bridge = b
	return a, nil
}

// Run starts the agent and blocks until ctx is canceled or, with dashboard
// set, until the user quits the dashboard.
func (a *App) Run(ctx context.Context, dashboard bool) error {
	if a.supervisor == nil {
		return errors.New("run requires agent mode")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var history statusapi.History
	if a.Journal != nil {
		history = a.Journal
	}
	srv := statusapi.New(a.Config.Status.Addr, a.Bridge, history, a.Logger)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("start local endpoint: %w", err)
	}

	current, _ := a.Bridge.Version()
	agentPath := a.Config.AgentFilePath()
	pid := os.Getpid()
	info := AgentInfo{PID: pid, Addr: srv.Addr(), Version: current, Started: time.Now().UTC()}
	if err := writeAgentFile(agentPath, info); err != nil {
		_ = srv.Close()
		return err
	}
	defer func() {
		if err := removeAgentFile(agentPath, pid); err != nil {
			a.Logger.Warn().Err(err).Msg("remove agent file")
		}
	}()
	a.Logger.Debug().Str("path", agentPath).Str("addr", info.Addr).Msg("agent file written")

	a.supervisor.Add(srv)
	done := a.supervisor.ServeBackground(ctx)

	a.Logger.Info().Msgf("bridge %s starting (server %s)", current, a.Bridge.Config().ServerURL)
	a.Bridge.Start(ctx)

	var runErr error
	if dashboard {
		sub, unsubscribe := a.Bus.Subscribe(0)
		runErr = ui.Run(ctx, ui.Options{
			Controller: a.Bridge,
			Events:     sub,
			LogPath:    a.Config.LogPath(),
		})
		unsubscribe()
	} else {
		<-ctx.Done()
	}

	a.Bridge.Shutdown()
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Warn().Err(err).Msg("supervisor stopped with error")
	}
	return runErr
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
