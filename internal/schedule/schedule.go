// Package schedule runs the bridge's periodic tasks: job polling, license
// checks and update checks.
//
// Each Kind has at most one running timer. Starting a running kind replaces
// its timer. Stopping a kind cancels future firings only; a tick already in
// progress finishes with a context that is not canceled by the stop.
package schedule

import (
	"context"
	"time"
)

// Kind names one of the bridge timers.
type Kind string

const (
	Poll    Kind = "poll"
	License Kind = "license"
	Update  Kind = "update"
)

// Task is one tick of a timer. Tasks handle their own errors.
type Task func(ctx context.Context)

// Scheduler owns the timer set.
type Scheduler interface {
	// Start runs task after delay, then every period. A zero delay fires
	// immediately. A running timer of the same kind is stopped first.
	Start(kind Kind, every, delay time.Duration, task Task)
	// Stop cancels future firings of kind. Stopping a stopped kind is a no-op.
	Stop(kind Kind)
	// Running reports whether kind has an active timer.
	Running(kind Kind) bool
}
