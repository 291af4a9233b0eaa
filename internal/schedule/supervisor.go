package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/industria/bridge/internal/clock"
	"github.com/industria/bridge/internal/logging"
)

// Supervisor is the production Scheduler. Every timer is a suture service;
// a panicking tick is logged and the timer restarted by the supervisor.
// Serve (or ServeBackground) must be running for Stop to take effect.
type Supervisor struct {
	sup    *suture.Supervisor
	clock  clock.Clock
	logger zerolog.Logger

	mu     sync.Mutex
	timers map[Kind]suture.ServiceToken
	locks  map[Kind]*sync.Mutex
}

var _ Scheduler = (*Supervisor)(nil)

// NewSupervisor returns a Supervisor whose events are logged through logger.
func NewSupervisor(clk clock.Clock, logger zerolog.Logger) *Supervisor {
	if clk == nil {
		clk = clock.Real()
	}
	handler := &sutureslog.Handler{Logger: slog.New(logging.NewSlogHandler(logger.With().Str("component", "supervisor").Logger()))}
	spec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	}
	return &Supervisor{
		sup:    suture.New("bridge", spec),
		clock:  clk,
		logger: logger.With().Str("component", "schedule").Logger(),
		timers: make(map[Kind]suture.ServiceToken),
		locks:  make(map[Kind]*sync.Mutex),
	}
}

// Add supervises a long-running service alongside the timers.
func (s *Supervisor) Add(svc suture.Service) suture.ServiceToken {
	return s.sup.Add(svc)
}

// Serve runs the supervisor until ctx is canceled.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.sup.Serve(ctx)
}

// ServeBackground runs the supervisor in a goroutine.
func (s *Supervisor) ServeBackground(ctx context.Context) <-chan error {
	return s.sup.ServeBackground(ctx)
}

// Start implements Scheduler.
func (s *Supervisor) Start(kind Kind, every, delay time.Duration, task Task) {
	if every <= 0 {
		s.logger.Error().Str("timer", string(kind)).Dur("every", every).Msg("refusing to start timer with non-positive period")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(kind)
	lock, ok := s.locks[kind]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[kind] = lock
	}
	s.timers[kind] = s.sup.Add(&timer{
		kind:  kind,
		every: every,
		delay: delay,
		task:  task,
		clock: s.clock,
		lock:  lock,
	})
	s.logger.Debug().Str("timer", string(kind)).Dur("every", every).Dur("delay", delay).Msg("timer started")
}

// Stop implements Scheduler.
func (s *Supervisor) Stop(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(kind)
}

func (s *Supervisor) stopLocked(kind Kind) {
	token, ok := s.timers[kind]
	if !ok {
		return
	}
	delete(s.timers, kind)
	err := s.sup.Remove(token)
	switch {
	case errors.Is(err, suture.ErrSupervisorNotRunning), errors.Is(err, suture.ErrSupervisorNotStarted):
		// The timer went down with the supervisor.
	case err != nil:
		s.logger.Warn().Err(err).Str("timer", string(kind)).Msg("timer remove failed")
		return
	}
	s.logger.Debug().Str("timer", string(kind)).Msg("timer stopped")
}

// Running implements Scheduler.
func (s *Supervisor) Running(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[kind]
	return ok
}

// timer is the suture service behind one Kind. The shared lock serializes
// ticks of the same kind across restarts.
type timer struct {
	kind  Kind
	every time.Duration
	delay time.Duration
	task  Task
	clock clock.Clock
	lock  *sync.Mutex
}

func (t *timer) Serve(ctx context.Context) error {
	if t.delay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-t.clock.After(t.delay):
		}
	}
	t.fire(ctx)

	ticker := t.clock.NewTicker(t.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.fire(ctx)
		}
	}
}

func (t *timer) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if ctx.Err() != nil {
		return
	}
	t.task(context.WithoutCancel(ctx))
}

func (t *timer) String() string {
	return fmt.Sprintf("timer-%s", t.kind)
}
