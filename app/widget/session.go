package widget

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle is the kind-independent face of a widget session.
type Handle interface {
	ID() string
	Kind() Kind
	Host() string
	Push(output, metadata []byte) View
	Commit(ctx context.Context, itemID string) (View, error)
	Reset() View
	View() View
	LastActive() time.Time
	Close()
	Closed() bool
}

type View struct {
	ID           string            `json:"id"`
	Kind         Kind              `json:"kind"`
	Host         string            `json:"host"`
	Items        any               `json:"items"`
	Meta         map[string]string `json:"meta,omitempty"`
	Empty        bool              `json:"empty"`
	Commitment   *CommitmentView   `json:"commitment,omitempty"`
	Notification NotificationState `json:"notification"`
	Offer        *OfferView        `json:"offer,omitempty"`
	CanCommit    bool              `json:"can_commit"`
	Capabilities []Primitive       `json:"capabilities"`
	Payment      *GateResult       `json:"payment,omitempty"`
}

type CommitmentView struct {
	ItemID      string    `json:"item_id"`
	Item        any       `json:"item"`
	Generation  uint64    `json:"generation"`
	CommittedAt time.Time `json:"committed_at"`
}

type OfferView struct {
	StartedAt        time.Time `json:"started_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Expired          bool      `json:"expired"`
}

// CommitEvent is emitted once per delivered commitment.
type CommitEvent struct {
	Session      string
	Host         string
	Kind         Kind
	ItemID       string
	Generation   uint64
	BlockTarget  string
	Message      string
	Notification NotificationState
	CommittedAt  time.Time
}

type SessionConfig[T Identifiable] struct {
	ID        string
	Kind      Kind
	Host      string
	Normalize Normalizer[T]
	Build     MessageBuilder[T]
	// WatchMeta names snapshot meta keys that identify the search; a change
	// in any of them resets a commitment even when item ids match.
	WatchMeta   []string
	BlockTarget func(T) string
	Timer       *OfferTimer
	Expiry      int
	Notifier    *Notifier
	Metrics     *Metrics
	OnCommit    func(CommitEvent)
}

type Session[T Identifiable] struct {
	cfg   SessionConfig[T]
	feed  *Feed[T]
	store *Store[T]

	unsubscribe func()
	// called with mu held whenever the commitment is dropped
	onReset func()

	mu           sync.Mutex
	notification NotificationState
	attempted    uint64
	closed       bool
	lastActive   time.Time
}

func NewSession[T Identifiable](cfg SessionConfig[T]) *Session[T] {
	s := &Session[T]{
		cfg:          cfg,
		feed:         NewFeed[T](),
		store:        NewStore[T](cfg.Timer, cfg.Expiry),
		notification: NotificationState{Status: NotSent},
		lastActive:   time.Now(),
	}
	s.unsubscribe = s.feed.OnChange(s.observe)

	if cfg.Timer != nil {
		cfg.Timer.Watch(func() {
			slog.Debug("Offer expired", "session", cfg.ID, "kind", string(cfg.Kind))
			s.broadcast(EventExpired, nil)
		})
	}
	return s
}

func (s *Session[T]) ID() string   { return s.cfg.ID }
func (s *Session[T]) Kind() Kind   { return s.cfg.Kind }
func (s *Session[T]) Host() string { return s.cfg.Host }

// Push normalizes a host push and publishes it on the session feed.
func (s *Session[T]) Push(output, metadata []byte) View {
	items, meta := s.cfg.Normalize(output, metadata)
	s.feed.Publish(Snapshot[T]{Items: items, Meta: meta, ReceivedAt: time.Now()})
	return s.View()
}

func (s *Session[T]) observe(snap Snapshot[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.lastActive = time.Now()

	before, wasCommitted := s.store.State()
	if wasCommitted && s.metaChanged(before.Frozen.Meta, snap.Meta) {
		s.store.Restart()
	}
	s.store.Observe(snap)

	if !wasCommitted {
		return
	}
	if after, ok := s.store.State(); !ok || after.Generation != before.Generation {
		slog.Info("Different search arrived, commitment reset", "session", s.cfg.ID, "kind", string(s.cfg.Kind), "item", before.Item.ItemID())
		s.notification = NotificationState{Status: NotSent, UpdatedAt: time.Now()}
		s.cfg.Metrics.reset(s.cfg.Kind)
		if s.onReset != nil {
			s.onReset()
		}
		go s.broadcast(EventReset, nil)
	}
}

func (s *Session[T]) metaChanged(frozen, live map[string]string) bool {
	for _, key := range s.cfg.WatchMeta {
		if frozen[key] != "" && live[key] != "" && frozen[key] != live[key] {
			return true
		}
	}
	return false
}

// Commit freezes the current results around itemID and notifies the host
// agent once. Committing again to the same item is only accepted after a
// failed delivery.
func (s *Session[T]) Commit(ctx context.Context, itemID string) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	s.lastActive = time.Now()

	c, err := s.store.Commit(itemID)
	switch {
	case errors.Is(err, ErrAlreadyCommitted):
		if c.Item.ItemID() != itemID {
			s.mu.Unlock()
			s.cfg.Metrics.commit(s.cfg.Kind, "already_committed")
			return s.View(), ErrAlreadyCommitted
		}
		if s.attempted == c.Generation && s.notification.Status != Failed {
			s.mu.Unlock()
			s.cfg.Metrics.commit(s.cfg.Kind, "already_attempted")
			return s.View(), ErrAlreadyAttempted
		}
	case errors.Is(err, ErrOfferExpired):
		s.mu.Unlock()
		s.cfg.Metrics.commit(s.cfg.Kind, "expired")
		return s.View(), err
	case err != nil:
		s.mu.Unlock()
		s.cfg.Metrics.commit(s.cfg.Kind, "rejected")
		return s.View(), err
	}

	s.attempted = c.Generation
	s.notification = NotificationState{Status: Sending, Generation: c.Generation, UpdatedAt: time.Now()}
	s.mu.Unlock()

	s.cfg.Metrics.commit(s.cfg.Kind, "committed")

	// An in-flight delivery is never cancelled, even if the caller goes away.
	var msg Message
	state := Notify(context.WithoutCancel(ctx), s.cfg.Notifier, c.Item, c.Frozen.Meta, func(item T, meta map[string]string) Message {
		msg = s.cfg.Build(item, meta)
		return msg
	})
	state.Generation = c.Generation

	if !s.apply(c.Generation, state) {
		slog.Debug("Discarding delivery result for stale commitment", "session", s.cfg.ID, "generation", c.Generation)
		return s.View(), nil
	}

	if s.cfg.OnCommit != nil {
		ev := CommitEvent{
			Session:      s.cfg.ID,
			Host:         s.cfg.Host,
			Kind:         s.cfg.Kind,
			ItemID:       itemID,
			Generation:   c.Generation,
			Message:      msg.Text,
			Notification: state,
			CommittedAt:  c.CommittedAt,
		}
		if s.cfg.BlockTarget != nil {
			ev.BlockTarget = s.cfg.BlockTarget(c.Item)
		}
		s.cfg.OnCommit(ev)
	}
	return s.View(), nil
}

// apply stores a delivery outcome unless the session closed or the
// commitment it belongs to has been replaced meanwhile.
func (s *Session[T]) apply(gen uint64, state NotificationState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if c, ok := s.store.State(); !ok || c.Generation != gen {
		return false
	}
	s.notification = state
	return true
}

func (s *Session[T]) Reset() View {
	s.mu.Lock()
	if _, ok := s.store.State(); ok && !s.closed {
		s.store.Reset()
		s.notification = NotificationState{Status: NotSent, UpdatedAt: time.Now()}
		s.cfg.Metrics.reset(s.cfg.Kind)
		if s.onReset != nil {
			s.onReset()
		}
	}
	s.mu.Unlock()
	return s.View()
}

func (s *Session[T]) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session[T]) viewLocked() View {
	items := s.store.Effective()
	if items == nil {
		items = []T{}
	}

	v := View{
		ID:           s.cfg.ID,
		Kind:         s.cfg.Kind,
		Host:         s.cfg.Host,
		Items:        items,
		Empty:        len(items) == 0,
		Notification: s.notification,
		Capabilities: s.cfg.Notifier.Capabilities().Detected(),
	}
	if v.Capabilities == nil {
		v.Capabilities = []Primitive{}
	}

	if c, ok := s.store.State(); ok {
		v.Meta = c.Frozen.Meta
		v.Commitment = &CommitmentView{
			ItemID:      c.Item.ItemID(),
			Item:        c.Item,
			Generation:  c.Generation,
			CommittedAt: c.CommittedAt,
		}
	} else if live, ok := s.store.Live(); ok {
		v.Meta = live.Meta
	}

	expired := false
	if t := s.cfg.Timer; t != nil && t.Started() {
		expired = t.Expired()
		v.Offer = &OfferView{
			StartedAt:        t.StartedAt(),
			RemainingSeconds: t.RemainingSeconds(),
			Expired:          expired,
		}
	}

	v.CanCommit = !s.closed && v.Commitment == nil && !v.Empty && !expired && s.notification.Status != Sending
	return v
}

func (s *Session[T]) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close tears the session down. Deliveries still in flight complete but
// their results are dropped.
func (s *Session[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.unsubscribe()
	if s.cfg.Timer != nil {
		s.cfg.Timer.Stop()
	}
}

func (s *Session[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session[T]) broadcast(eventType string, payload map[string]any) {
	events := s.cfg.Notifier.Capabilities().Events
	if events == nil {
		return
	}
	ev := BroadcastEvent{
		ID:      uuid.NewString(),
		Session: s.cfg.ID,
		Type:    eventType,
		Kind:    s.cfg.Kind,
		Payload: payload,
		At:      time.Now(),
	}
	if err := guard(func() error { return events.BroadcastEvent(ev) }); err != nil {
		slog.Debug("Failed to broadcast session event", "session", s.cfg.ID, "type", eventType, "error", err)
	}
}
