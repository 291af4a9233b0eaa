// Package license models the entitlement state machine that gates job
// polling. Transition is pure: the orchestrator applies the returned effects.
package license

import "errors"

// Status is the outcome of the most recent check.
type Status string

const (
	StatusUnknown         Status = "unknown"
	StatusActive          Status = "active"
	StatusInactive        Status = "inactive"
	StatusUnauthenticated Status = "unauthenticated"
	StatusError           Status = "error"
	StatusDisconnected    Status = "disconnected"
)

// ErrInactive is returned to a user command when the session is valid but the
// license is not active.
var ErrInactive = errors.New("license inactive")

// State is recomputed whole on every check. Active is true only when Status
// is StatusActive.
type State struct {
	Active  bool   `json:"active"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Initial is the state before any check ran.
func Initial() State { return State{Status: StatusUnknown} }

// Disconnected is the state after logout.
func Disconnected() State {
	return State{Status: StatusDisconnected, Message: "logged out"}
}

// Outcome is what a single check observed.
type Outcome struct {
	// Authenticated is false when no credential was available.
	Authenticated bool
	Active        bool
	Message       string
	// Err is set when the status call failed.
	Err error
}

// Effect is a side effect the orchestrator must apply after a transition.
type Effect int

const (
	StopPoller Effect = iota + 1
	StartPoller
	SyncDevices
	EmitExpired
	EmitActivated
)

func (e Effect) String() string {
	switch e {
	case StopPoller:
		return "stop-poller"
	case StartPoller:
		return "start-poller"
	case SyncDevices:
		return "sync-devices"
	case EmitExpired:
		return "emit-expired"
	case EmitActivated:
		return "emit-activated"
	default:
		return "unknown"
	}
}

// Transition computes the next state and the effects of observing outcome.
// StartPoller and StopPoller are emitted unconditionally; applying them to a
// poller that is already in the requested state is a no-op.
func Transition(prev State, outcome Outcome) (State, []Effect) {
	switch {
	case !outcome.Authenticated:
		return State{Status: StatusUnauthenticated, Message: "no session"}, []Effect{StopPoller}
	case outcome.Err != nil:
		return State{Status: StatusError, Message: outcome.Err.Error()}, nil
	case !outcome.Active:
		next := State{Status: StatusInactive, Message: outcome.Message}
		return next, []Effect{StopPoller, EmitExpired}
	case prev.Active:
		return State{Active: true, Status: StatusActive, Message: outcome.Message}, nil
	default:
		next := State{Active: true, Status: StatusActive, Message: outcome.Message}
		return next, []Effect{EmitActivated, SyncDevices, StartPoller}
	}
}
