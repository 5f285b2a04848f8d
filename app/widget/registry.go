package widget

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter"

	"github.com/lysyi3m/trip-cards/app/booking"
)

// Factory builds sessions for a host. Capabilities resolves the delivery
// primitives a named host exposes.
type Factory struct {
	OfferExpiry  int
	Gate         *ConfirmationGate
	Metrics      *Metrics
	Capabilities func(host string) (Capabilities, error)
	OnCommit     func(CommitEvent)
	Now          func() time.Time
}

func (f *Factory) New(id string, kind Kind, host string) (Handle, error) {
	caps := Capabilities{}
	if f.Capabilities != nil {
		var err error
		if caps, err = f.Capabilities(host); err != nil {
			return nil, fmt.Errorf("failed to resolve host %q: %w", host, err)
		}
	}
	notifier := NewNotifier(caps, id, f.Metrics)

	switch kind {
	case KindFlight:
		return NewSession(SessionConfig[Flight]{
			ID: id, Kind: kind, Host: host,
			Normalize:   NormalizeFlights,
			Build:       FlightMessage,
			BlockTarget: func(Flight) string { return booking.TargetFlight },
			Timer:       NewOfferTimer(f.Now),
			Expiry:      f.OfferExpiry,
			Notifier:    notifier,
			Metrics:     f.Metrics,
			OnCommit:    f.OnCommit,
		}), nil
	case KindHotel:
		return NewSession(SessionConfig[Hotel]{
			ID: id, Kind: kind, Host: host,
			Normalize:   NormalizeHotels,
			Build:       HotelMessage,
			BlockTarget: func(Hotel) string { return booking.TargetHotel },
			Timer:       NewOfferTimer(f.Now),
			Expiry:      f.OfferExpiry,
			Notifier:    notifier,
			Metrics:     f.Metrics,
			OnCommit:    f.OnCommit,
		}), nil
	case KindRoom:
		return NewSession(SessionConfig[Room]{
			ID: id, Kind: kind, Host: host,
			Normalize:   NormalizeRooms,
			Build:       RoomMessage,
			WatchMeta:   []string{"srr"},
			BlockTarget: func(Room) string { return booking.TargetRoom },
			Notifier:    notifier,
			Metrics:     f.Metrics,
			OnCommit:    f.OnCommit,
		}), nil
	case KindPayment:
		if f.Gate == nil {
			return nil, fmt.Errorf("payment sessions need a confirmation gate")
		}
		return NewPaymentSession(SessionConfig[Payment]{
			ID: id, Host: host,
			Notifier: notifier,
			Metrics:  f.Metrics,
			OnCommit: f.OnCommit,
		}, f.Gate), nil
	}
	return nil, fmt.Errorf("unknown widget kind %q", kind)
}

// Registry holds live sessions. Sessions idle for longer than the TTL are
// closed by Sweep; sessions evicted for capacity are closed on eviction.
type Registry struct {
	cache   *otter.Cache[string, Handle]
	factory *Factory
	ttl     time.Duration
	metrics *Metrics
}

func NewRegistry(capacity int, ttl time.Duration, factory *Factory) (*Registry, error) {
	cache, err := otter.MustBuilder[string, Handle](capacity).
		DeletionListener(func(key string, h Handle, cause otter.DeletionCause) {
			h.Close()
			factory.Metrics.sessions(-1)
			slog.Debug("Session released", "session", key, "cause", cause)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build session cache: %w", err)
	}

	return &Registry{
		cache:   &cache,
		factory: factory,
		ttl:     ttl,
		metrics: factory.Metrics,
	}, nil
}

func (r *Registry) Open(kind Kind, host string) (Handle, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown widget kind %q", kind)
	}

	id := uuid.NewString()
	h, err := r.factory.New(id, kind, host)
	if err != nil {
		return nil, err
	}
	if !r.cache.Set(id, h) {
		h.Close()
		return nil, fmt.Errorf("session cache rejected %s", id)
	}
	r.metrics.sessions(1)

	slog.Info("Session opened", "session", id, "kind", string(kind), "host", host)
	return h, nil
}

func (r *Registry) Get(id string) (Handle, bool) {
	h, ok := r.cache.Get(id)
	if !ok || h.Closed() {
		return nil, false
	}
	return h, true
}

// Close tears a session down and forgets it.
func (r *Registry) Close(id string) bool {
	h, ok := r.cache.Get(id)
	if !ok {
		return false
	}
	h.Close()
	r.cache.Delete(id)
	return true
}

// Sweep closes sessions that have been idle longer than the TTL and returns
// how many it released.
func (r *Registry) Sweep(now time.Time) int {
	var stale []string
	r.cache.Range(func(id string, h Handle) bool {
		if h.Closed() || now.Sub(h.LastActive()) > r.ttl {
			stale = append(stale, id)
		}
		return true
	})

	for _, id := range stale {
		r.Close(id)
	}
	return len(stale)
}

func (r *Registry) Len() int {
	return r.cache.Size()
}

func (r *Registry) Shutdown() {
	r.cache.Range(func(_ string, h Handle) bool {
		h.Close()
		return true
	})
	r.cache.Close()
}
