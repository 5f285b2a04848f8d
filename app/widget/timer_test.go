package widget

import (
	"testing"
	"time"
)

func TestOfferTimerCountdown(t *testing.T) {
	clock := newFakeClock()
	timer := NewOfferTimer(clock.Now)

	if timer.Expired() {
		t.Error("Expected unstarted timer not to be expired")
	}

	timer.Start(900)
	if got := timer.RemainingSeconds(); got != 900 {
		t.Errorf("Expected 900 seconds remaining, got %d", got)
	}

	clock.Advance(125 * time.Second)
	if got := timer.RemainingSeconds(); got != 775 {
		t.Errorf("Expected 775 seconds remaining, got %d", got)
	}

	clock.Advance(2 * time.Hour)
	if got := timer.RemainingSeconds(); got != 0 {
		t.Errorf("Expected remaining to clamp at 0, got %d", got)
	}
	if !timer.Expired() {
		t.Error("Expected timer to be expired")
	}
}

func TestOfferTimerExpiryIsSticky(t *testing.T) {
	clock := newFakeClock()
	timer := NewOfferTimer(clock.Now)
	timer.Start(10)

	clock.Advance(11 * time.Second)
	if !timer.Expired() {
		t.Fatal("Expected timer to be expired")
	}

	clock.Advance(-time.Minute)
	for i := 0; i < 3; i++ {
		if !timer.Expired() {
			t.Errorf("Expected expiry to stay latched on read %d", i)
		}
	}

	timer.Start(10)
	if timer.Expired() {
		t.Error("Expected a new start to clear expiry")
	}
}

func TestOfferTimerWatchFiresOncePerBatch(t *testing.T) {
	timer := NewOfferTimer(nil)
	timer.tick = 5 * time.Millisecond
	defer timer.Stop()

	fired := make(chan struct{}, 4)
	timer.Watch(func() { fired <- struct{}{} })
	timer.Start(0)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Expected onExpire to fire")
	}

	select {
	case <-fired:
		t.Error("Expected onExpire to fire only once for the same batch")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOfferTimerStopIsIdempotent(t *testing.T) {
	timer := NewOfferTimer(nil)
	timer.Watch(func() {})
	timer.Stop()
	timer.Stop()
}
