package schedule

import (
	"context"
	"sync"
	"time"
)

// Manual is a Scheduler that never fires on its own. Tests call Fire to run
// a tick of a running kind, which makes tick interleaving explicit.
type Manual struct {
	mu     sync.Mutex
	timers map[Kind]manualTimer
	starts map[Kind]int
	stops  map[Kind]int
}

type manualTimer struct {
	every time.Duration
	delay time.Duration
	task  Task
}

var _ Scheduler = (*Manual)(nil)

// NewManual returns an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{
		timers: make(map[Kind]manualTimer),
		starts: make(map[Kind]int),
		stops:  make(map[Kind]int),
	}
}

// Start implements Scheduler. The immediate first tick is not run; call Fire.
func (m *Manual) Start(kind Kind, every, delay time.Duration, task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[kind] = manualTimer{every: every, delay: delay, task: task}
	m.starts[kind]++
}

// Stop implements Scheduler.
func (m *Manual) Stop(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.timers[kind]; ok {
		delete(m.timers, kind)
		m.stops[kind]++
	}
}

// Running implements Scheduler.
func (m *Manual) Running(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[kind]
	return ok
}

// Fire runs one tick of kind and reports whether kind was running.
func (m *Manual) Fire(ctx context.Context, kind Kind) bool {
	m.mu.Lock()
	t, ok := m.timers[kind]
	m.mu.Unlock()
	if !ok {
		return false
	}
	t.task(ctx)
	return true
}

// Every returns the period kind was last started with.
func (m *Manual) Every(kind Kind) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[kind].every
}

// Delay returns the initial delay kind was last started with.
func (m *Manual) Delay(kind Kind) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[kind].delay
}

// Starts returns how many times kind was started.
func (m *Manual) Starts(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts[kind]
}

// Stops returns how many times a running kind was stopped.
func (m *Manual) Stops(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops[kind]
}
