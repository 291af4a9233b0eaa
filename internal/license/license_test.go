package license

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
)

func TestTransition(t *testing.T) {
	active := State{Active: true, Status: StatusActive, Message: "ok"}

	tests := []struct {
		name        string
		prev        State
		outcome     Outcome
		wantStatus  Status
		wantActive  bool
		wantMessage string
		wantEffects []Effect
	}{
		{
			name:        "no credential",
			prev:        active,
			outcome:     Outcome{},
			wantStatus:  StatusUnauthenticated,
			wantMessage: "no session",
			wantEffects: []Effect{StopPoller},
		},
		{
			name:        "call failed keeps poller",
			prev:        active,
			outcome:     Outcome{Authenticated: true, Err: errors.New("boom")},
			wantStatus:  StatusError,
			wantMessage: "boom",
		},
		{
			name:        "inactive",
			prev:        active,
			outcome:     Outcome{Authenticated: true, Message: "vencida"},
			wantStatus:  StatusInactive,
			wantMessage: "vencida",
			wantEffects: []Effect{StopPoller, EmitExpired},
		},
		{
			name:        "activation from unknown",
			prev:        Initial(),
			outcome:     Outcome{Authenticated: true, Active: true, Message: "ok"},
			wantStatus:  StatusActive,
			wantActive:  true,
			wantMessage: "ok",
			wantEffects: []Effect{EmitActivated, SyncDevices, StartPoller},
		},
		{
			name:        "reactivation after inactive",
			prev:        State{Status: StatusInactive},
			outcome:     Outcome{Authenticated: true, Active: true},
			wantStatus:  StatusActive,
			wantActive:  true,
			wantEffects: []Effect{EmitActivated, SyncDevices, StartPoller},
		},
		{
			name:        "still active refreshes message only",
			prev:        active,
			outcome:     Outcome{Authenticated: true, Active: true, Message: "renovada"},
			wantStatus:  StatusActive,
			wantActive:  true,
			wantMessage: "renovada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects := Transition(tt.prev, tt.outcome)
			if got.Status != tt.wantStatus || got.Active != tt.wantActive || got.Message != tt.wantMessage {
				t.Fatalf("state = %#v, want %s active=%v %q", got, tt.wantStatus, tt.wantActive, tt.wantMessage)
			}
			if !slices.Equal(effects, tt.wantEffects) {
				t.Fatalf("effects = %v, want %v", effects, tt.wantEffects)
			}
		})
	}
}

func TestTransition_ActiveOnlyWhenStatusActive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	state := Initial()
	for i := 0; i < 500; i++ {
		outcome := Outcome{
			Authenticated: rng.Intn(5) != 0,
			Active:        rng.Intn(2) == 0,
		}
		if rng.Intn(6) == 0 {
			outcome.Err = errors.New("network")
		}
		state, _ = Transition(state, outcome)
		if state.Active != (state.Status == StatusActive) {
			t.Fatalf("step %d: Active=%v with Status=%s", i, state.Active, state.Status)
		}
	}
}

// The poller must be running iff the latest successful check reported active.
func TestTransition_PollerFollowsLatestCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	state := Initial()
	running := false
	lastActive := false

	for i := 0; i < 1000; i++ {
		outcome := Outcome{Authenticated: true, Active: rng.Intn(2) == 0}
		var effects []Effect
		state, effects = Transition(state, outcome)
		for _, e := range effects {
			switch e {
			case StartPoller:
				running = true
			case StopPoller:
				running = false
			}
		}
		lastActive = outcome.Active
		if running != lastActive {
			t.Fatalf("step %d: running=%v, last check active=%v", i, running, lastActive)
		}
	}
}

func TestEffectString(t *testing.T) {
	if StopPoller.String() != "stop-poller" || Effect(99).String() != "unknown" {
		t.Fatalf("unexpected Effect strings")
	}
}
