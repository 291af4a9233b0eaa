package bridge

import (
	"context"
	"errors"
	"strings"

	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/metrics"
	"github.com/industria/bridge/internal/remote"
	"github.com/industria/bridge/internal/schedule"
)

// CheckLicense fetches the entitlement, applies the transition and its
// effects, and returns the resulting state. A result that arrives after the
// session changed (logout or a new login) is discarded.
func (b *Bridge) CheckLicense(ctx context.Context) license.State {
	token := b.Token()

	var (
		outcome    license.Outcome
		serverCode string
		rejected   bool
	)
	if token != "" {
		lic, err := b.gateway.FetchLicense(ctx)
		switch {
		case errors.Is(err, remote.ErrUnauthenticated):
			rejected = true
		case err != nil:
			outcome = license.Outcome{Authenticated: true, Err: errors.New(remote.Message(err))}
		default:
			outcome = license.Outcome{Authenticated: true, Active: lic.Active, Message: licenseMessage(lic)}
			serverCode = lic.Status
		}
	}

	b.mu.Lock()
	current := b.data.AuthToken
	if current != token && !(rejected && current == "") {
		st := b.license
		b.mu.Unlock()
		b.logger.Debug().Msg("session changed during license check; result discarded")
		return st
	}
	next, effects := license.Transition(b.license, outcome)
	b.license = next
	b.mu.Unlock()

	b.status.SetLicense(next)
	metrics.RecordLicense(string(next.Status), next.Active)
	switch next.Status {
	case license.StatusError:
		b.logger.Error().Msgf("license check failed: %s", next.Message)
	case license.StatusActive:
		b.logger.Debug().Str("message", next.Message).Msg("license active")
	}

	for _, effect := range effects {
		b.applyEffect(ctx, effect, next, serverCode)
	}
	return next
}

func (b *Bridge) applyEffect(ctx context.Context, effect license.Effect, st license.State, serverCode string) {
	switch effect {
	case license.StopPoller:
		b.stopPolling()
	case license.StartPoller:
		if !b.sched.Running(schedule.Poll) {
			b.startPolling()
		}
	case license.SyncDevices:
		b.SyncDevices(ctx)
	case license.EmitExpired:
		b.logger.Warn().Msgf("license inactive: %s", st.Message)
		if serverCode == "" {
			serverCode = string(st.Status)
		}
		b.emitter.Emit(events.LicenseExpired{Status: serverCode, Message: st.Message})
	case license.EmitActivated:
		b.logger.Info().Msg("license activated")
		b.emitter.Emit(events.LicenseActivated{Message: st.Message})
	}
}

func (b *Bridge) startLicenseChecks() {
	b.sched.Start(schedule.License, b.timers.License, 0, func(ctx context.Context) {
		b.CheckLicense(ctx)
	})
}

func licenseMessage(lic remote.License) string {
	if msg := strings.TrimSpace(lic.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(lic.Status)
}
