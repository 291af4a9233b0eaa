// Package bridge is the orchestrator: it owns the session, the license state
// and the three timers, and exposes the commands the presentation layer calls.
//
// # Timers
//
//   - license: immediately, then every hour while a session exists. Each
//     check runs license.Transition and applies its effects, which is the
//     only automatic way the poller starts or stops.
//   - poll: immediately, then every PollingInterval ms. A tick with no
//     session does nothing; a tick with an inactive license logs and does
//     nothing; otherwise pending jobs go through the delivery pipeline one
//     at a time in server order.
//   - update: 10s after Start, then every six hours, session or not.
//
// # Session
//
// Bridge implements remote.Session. A 401 on any authenticated call clears
// the token through Invalidate exactly once; the next poll tick then returns
// without a network call.
//
// # Concurrency
//
// Ticks of different timers may interleave. State is read under the mutex at
// the start of each step and the mutex is never held across I/O. A license
// check whose session changed while it was in flight (logout, new login) is
// discarded.
//
// # Events
//
// Everything observable goes out through the events.Emitter: log entries
// (via the logger hook), license expiry and activation, update availability,
// completed jobs, device syncs and status changes.
package bridge
