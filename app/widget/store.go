package widget

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

type Commitment[T Identifiable] struct {
	Item        T
	Frozen      Snapshot[T]
	Generation  uint64
	CommittedAt time.Time
}

// Store keeps the live result set and, once the user picks an item, a frozen
// copy of the snapshot the pick was made from. Re-pushes of the same search
// never unfreeze it; a push with a different id-set resets to idle.
type Store[T Identifiable] struct {
	mu         sync.Mutex
	live       *Snapshot[T]
	committed  *Commitment[T]
	generation uint64

	timer  *OfferTimer
	expiry int
	now    func() time.Time
}

// NewStore creates an idle store. timer may be nil for kinds without offer
// expiry.
func NewStore[T Identifiable](timer *OfferTimer, expirySeconds int) *Store[T] {
	return &Store[T]{
		timer:  timer,
		expiry: expirySeconds,
		now:    time.Now,
	}
}

// Observe applies a feed push and returns the items the view should show.
func (s *Store[T]) Observe(snap Snapshot[T]) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.live
	s.live = &snap

	if s.committed != nil {
		if sameSearch(s.committed.Frozen.ids(), snap.ids()) {
			return s.committed.Frozen.Items
		}
		s.committed = nil
		s.restartTimer()
		return snap.Items
	}

	if prev == nil || !sameSearch(prev.ids(), snap.ids()) {
		s.restartTimer()
	}
	return snap.Items
}

// Commit freezes the freshest snapshot around the chosen item. Only one
// commitment can be active; expired offers are rejected.
func (s *Store[T]) Commit(itemID string) (Commitment[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committed != nil {
		return *s.committed, ErrAlreadyCommitted
	}
	if s.live == nil {
		return Commitment[T]{}, ErrUnknownItem
	}

	item, ok := s.live.find(itemID)
	if !ok {
		return Commitment[T]{}, ErrUnknownItem
	}
	if s.timer != nil && s.timer.Expired() {
		return Commitment[T]{}, ErrOfferExpired
	}

	s.generation++
	s.committed = &Commitment[T]{
		Item:        item,
		Frozen:      *s.live,
		Generation:  s.generation,
		CommittedAt: s.now(),
	}
	return *s.committed, nil
}

// Reset drops the active commitment. The expiry window keeps running, so an
// expired batch stays expired.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.committed = nil
}

// Restart drops the active commitment and opens a fresh expiry window. Use it
// when a different search arrives under the same item ids.
func (s *Store[T]) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.committed = nil
	s.restartTimer()
}

func (s *Store[T]) State() (Commitment[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committed == nil {
		return Commitment[T]{}, false
	}
	return *s.committed, true
}

// Effective returns what the last Observe would have returned.
func (s *Store[T]) Effective() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committed != nil {
		return s.committed.Frozen.Items
	}
	if s.live == nil {
		return nil
	}
	return s.live.Items
}

func (s *Store[T]) Live() (Snapshot[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live == nil {
		return Snapshot[T]{}, false
	}
	return *s.live, true
}

func (s *Store[T]) restartTimer() {
	if s.timer != nil {
		s.timer.Start(s.expiry)
	}
}

// sameSearch reports whether two id lists hold exactly the same set of ids.
func sameSearch(a, b []string) bool {
	a, b = lo.Uniq(a), lo.Uniq(b)
	if len(a) != len(b) {
		return false
	}
	left, right := lo.Difference(a, b)
	return len(left) == 0 && len(right) == 0
}
