package clock

import (
	"testing"
	"time"
)

func TestFake_TickerFiresOnAdvance(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ticker := f.NewTicker(5 * time.Second)
	defer ticker.Stop()

	f.Advance(4 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	f.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after interval")
	}

	if got := f.Pending(); got != 1 {
		t.Fatalf("Pending = %d, want 1 (ticker rescheduled)", got)
	}
}

func TestFake_StoppedTickerDoesNotFire(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ticker := f.NewTicker(time.Second)
	ticker.Stop()

	f.Advance(3 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
	if got := f.Pending(); got != 0 {
		t.Fatalf("Pending = %d, want 0", got)
	}
}

func TestFake_AfterNonPositiveFiresImmediately(t *testing.T) {
	f := NewFake(time.Unix(100, 0))
	select {
	case got := <-f.After(0):
		if !got.Equal(time.Unix(100, 0)) {
			t.Fatalf("After(0) = %v, want %v", got, time.Unix(100, 0))
		}
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFake_WaitForTimers(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	done := make(chan struct{})
	go func() {
		<-f.After(time.Minute)
		close(done)
	}()

	f.WaitForTimers(1)
	f.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("After waiter never released")
	}
}
