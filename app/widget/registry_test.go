package widget

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T, factory *Factory) *Registry {
	t.Helper()

	r, err := NewRegistry(100, time.Minute, factory)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	t.Cleanup(r.Shutdown)
	return r
}

func TestRegistryOpenAndGet(t *testing.T) {
	r := newTestRegistry(t, &Factory{OfferExpiry: 900})

	h, err := r.Open(KindFlight, "web")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if h.Kind() != KindFlight || h.Host() != "web" || h.ID() == "" {
		t.Errorf("Unexpected handle kind=%s host=%s id=%s", h.Kind(), h.Host(), h.ID())
	}

	got, ok := r.Get(h.ID())
	if !ok || got.ID() != h.ID() {
		t.Fatalf("Expected to find session %s", h.ID())
	}

	v := got.Push([]byte(duffelOffers), nil)
	if v.Offer == nil || v.Offer.RemainingSeconds != 900 {
		t.Errorf("Expected a fresh 900s offer window, got %+v", v.Offer)
	}
	if _, err := got.Commit(context.Background(), "off_2"); err != nil {
		t.Errorf("Commit failed: %v", err)
	}
}

func TestRegistryRejectsBadKinds(t *testing.T) {
	r := newTestRegistry(t, &Factory{})

	if _, err := r.Open(Kind("car"), "web"); err == nil {
		t.Error("Expected error for unknown kind")
	}
	if _, err := r.Open(KindPayment, "web"); err == nil {
		t.Error("Expected error for payment without a gate")
	}
}

func TestRegistryHostResolution(t *testing.T) {
	r := newTestRegistry(t, &Factory{
		Capabilities: func(host string) (Capabilities, error) {
			if host != "known" {
				return Capabilities{}, errors.New("no such host")
			}
			return Capabilities{SendMessage: sendHost{&mockHost{}}}, nil
		},
	})

	if _, err := r.Open(KindHotel, "unknown"); err == nil {
		t.Error("Expected error for unknown host")
	}

	h, err := r.Open(KindHotel, "known")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if caps := h.View().Capabilities; len(caps) != 1 || caps[0] != PrimitiveSendMessage {
		t.Errorf("Expected sendMessage capability, got %v", caps)
	}
}

func TestRegistryCloseAndSweep(t *testing.T) {
	r := newTestRegistry(t, &Factory{})

	a, _ := r.Open(KindRoom, "web")
	b, _ := r.Open(KindHotel, "web")

	if !r.Close(a.ID()) {
		t.Error("Expected Close to report the session")
	}
	if !a.Closed() {
		t.Error("Expected closed session")
	}
	if _, ok := r.Get(a.ID()); ok {
		t.Error("Expected closed session to be gone")
	}
	if r.Close(a.ID()) {
		t.Error("Expected second Close to find nothing")
	}

	if n := r.Sweep(time.Now()); n != 0 {
		t.Errorf("Expected nothing to sweep yet, got %d", n)
	}
	if n := r.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("Expected 1 idle session swept, got %d", n)
	}
	if !b.Closed() {
		t.Error("Expected idle session to be closed")
	}
}
