package events

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(8)
	defer cancel()

	bus.Emit(LicenseActivated{Message: "ok"})
	bus.Emit(JobCompleted{FileName: "a.nc", Folder: "/x"})

	first := <-ch
	if first.Name() != "license-activated" {
		t.Fatalf("first event = %s, want license-activated", first.Name())
	}
	second := <-ch
	done, ok := second.(JobCompleted)
	if !ok || done.FileName != "a.nc" {
		t.Fatalf("second event = %#v, want JobCompleted a.nc", second)
	}
}

func TestBus_FullSubscriberDropsWithoutBlocking(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Emit(StatusChanged{Connected: true})
	bus.Emit(StatusChanged{Connected: false})

	if got := bus.Dropped(); got != 1 {
		t.Fatalf("Dropped = %d, want 1", got)
	}
	ev := <-ch
	if sc := ev.(StatusChanged); !sc.Connected {
		t.Fatalf("kept event = %#v, want the first one", sc)
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
	bus.Emit(LicenseExpired{Message: "vencida"})
}

func TestBus_LogHookMirrorsInfoAndAbove(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(8)
	defer cancel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel).Hook(bus.LogHook())
	logger.Debug().Msg("hidden")
	logger.Warn().Msg("license not active")

	ev := <-ch
	entry, ok := ev.(LogEntry)
	if !ok {
		t.Fatalf("event = %#v, want LogEntry", ev)
	}
	if entry.Level != "warn" || entry.Message != "license not active" {
		t.Fatalf("entry = %#v, want warn/license not active", entry)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra event %#v", extra)
	default:
	}
}
