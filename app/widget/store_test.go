package widget

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type testItem struct {
	ID    string
	Label string
}

func (i testItem) ItemID() string { return i.ID }

func snap(ids ...string) Snapshot[testItem] {
	items := make([]testItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, testItem{ID: id})
	}
	return Snapshot[testItem]{Items: items, ReceivedAt: time.Now()}
}

func effectiveIDs(items []testItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestStoreObserveIdle(t *testing.T) {
	store := NewStore[testItem](nil, 0)

	if items := store.Effective(); items != nil {
		t.Errorf("Expected no items before first push, got %v", items)
	}

	got := effectiveIDs(store.Observe(snap("A", "B")))
	if diff := cmp.Diff([]string{"A", "B"}, got); diff != "" {
		t.Errorf("Unexpected effective items (-want +got):\n%s", diff)
	}

	if _, ok := store.State(); ok {
		t.Error("Expected idle store after observe")
	}
}

func TestStoreReorderedPushKeepsCommitment(t *testing.T) {
	store := NewStore[testItem](nil, 0)
	store.Observe(snap("A", "B"))

	c, err := store.Commit("B")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if c.Item.ID != "B" {
		t.Errorf("Expected committed item B, got %s", c.Item.ID)
	}

	got := effectiveIDs(store.Observe(snap("B", "A")))
	if diff := cmp.Diff([]string{"A", "B"}, got); diff != "" {
		t.Errorf("Expected frozen items after reordered push (-want +got):\n%s", diff)
	}

	state, ok := store.State()
	if !ok || state.Item.ID != "B" {
		t.Errorf("Expected commitment to B to survive, got %+v (ok=%v)", state.Item, ok)
	}

	got = effectiveIDs(store.Observe(snap("A", "C")))
	if diff := cmp.Diff([]string{"A", "C"}, got); diff != "" {
		t.Errorf("Expected new items after different search (-want +got):\n%s", diff)
	}
	if _, ok := store.State(); ok {
		t.Error("Expected store to reset to idle after a different search")
	}
}

func TestStoreFreezeIgnoresFieldChanges(t *testing.T) {
	store := NewStore[testItem](nil, 0)
	store.Observe(Snapshot[testItem]{Items: []testItem{{ID: "A", Label: "old"}, {ID: "B", Label: "old"}}})

	if _, err := store.Commit("A"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	items := store.Observe(Snapshot[testItem]{Items: []testItem{{ID: "A", Label: "new"}, {ID: "B", Label: "new"}}})
	for _, item := range items {
		if item.Label != "old" {
			t.Errorf("Expected frozen label 'old' for %s, got '%s'", item.ID, item.Label)
		}
	}
}

func TestStoreDifferentSearchRule(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		same bool
	}{
		{"identical", []string{"A", "B"}, []string{"A", "B"}, true},
		{"reordered", []string{"A", "B"}, []string{"B", "A"}, true},
		{"extra id", []string{"A", "B"}, []string{"A", "B", "C"}, false},
		{"missing id", []string{"A", "B"}, []string{"A"}, false},
		{"swapped id", []string{"A", "B"}, []string{"A", "C"}, false},
		{"both empty", []string{}, []string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameSearch(tt.a, tt.b); got != tt.same {
				t.Errorf("Expected sameSearch(%v, %v) = %v, got %v", tt.a, tt.b, tt.same, got)
			}
		})
	}
}

func TestStoreCommitRejections(t *testing.T) {
	store := NewStore[testItem](nil, 0)

	if _, err := store.Commit("A"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Expected ErrUnknownItem before any push, got %v", err)
	}

	store.Observe(snap("A", "B"))
	if _, err := store.Commit("Z"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Expected ErrUnknownItem for missing id, got %v", err)
	}

	first, err := store.Commit("A")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	again, err := store.Commit("B")
	if !errors.Is(err, ErrAlreadyCommitted) {
		t.Errorf("Expected ErrAlreadyCommitted, got %v", err)
	}
	if again.Item.ID != "A" || again.Generation != first.Generation {
		t.Errorf("Expected existing commitment to A, got %s gen %d", again.Item.ID, again.Generation)
	}
}

func TestStoreResetStartsNewGeneration(t *testing.T) {
	store := NewStore[testItem](nil, 0)
	store.Observe(snap("A"))

	first, _ := store.Commit("A")
	store.Reset()

	if _, ok := store.State(); ok {
		t.Fatal("Expected idle after reset")
	}

	second, err := store.Commit("A")
	if err != nil {
		t.Fatalf("Commit after reset failed: %v", err)
	}
	if second.Generation <= first.Generation {
		t.Errorf("Expected generation to grow, got %d then %d", first.Generation, second.Generation)
	}
}

func TestStoreExpiredOfferRejected(t *testing.T) {
	clock := newFakeClock()
	timer := NewOfferTimer(clock.Now)
	store := NewStore[testItem](timer, 60)

	store.Observe(snap("A", "B"))
	clock.Advance(61 * time.Second)

	if _, err := store.Commit("A"); !errors.Is(err, ErrOfferExpired) {
		t.Errorf("Expected ErrOfferExpired, got %v", err)
	}

	// expired items stay visible
	if got := len(store.Effective()); got != 2 {
		t.Errorf("Expected 2 items to remain visible, got %d", got)
	}
}

func TestStoreTimerRestartsOnlyForNewSearch(t *testing.T) {
	clock := newFakeClock()
	timer := NewOfferTimer(clock.Now)
	store := NewStore[testItem](timer, 60)

	store.Observe(snap("A", "B"))
	started := timer.StartedAt()

	clock.Advance(30 * time.Second)
	store.Observe(snap("B", "A"))
	if !timer.StartedAt().Equal(started) {
		t.Errorf("Expected timer to keep running on re-push, restarted at %v", timer.StartedAt())
	}

	if _, err := store.Commit("A"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	clock.Advance(10 * time.Second)
	store.Observe(snap("A", "C"))
	if !timer.StartedAt().Equal(clock.Now()) {
		t.Errorf("Expected timer restart at %v, got %v", clock.Now(), timer.StartedAt())
	}
	if got := timer.RemainingSeconds(); got != 60 {
		t.Errorf("Expected 60 seconds remaining, got %d", got)
	}
}

func TestStoreResetKeepsExpiredOfferInert(t *testing.T) {
	clock := newFakeClock()
	timer := NewOfferTimer(clock.Now)
	store := NewStore[testItem](timer, 60)

	store.Observe(snap("A", "B"))
	if _, err := store.Commit("A"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	started := timer.StartedAt()

	clock.Advance(2 * time.Minute)
	store.Reset()

	if !timer.StartedAt().Equal(started) {
		t.Errorf("Expected timer to keep its start %v, got %v", started, timer.StartedAt())
	}
	if !timer.Expired() {
		t.Error("Expected offer to stay expired after reset")
	}
	if _, err := store.Commit("B"); !errors.Is(err, ErrOfferExpired) {
		t.Errorf("Expected ErrOfferExpired after reset, got %v", err)
	}

	store.Observe(snap("C", "D"))
	if _, err := store.Commit("C"); err != nil {
		t.Errorf("Expected commit on a new search to succeed, got %v", err)
	}
}

func TestStoreRestartOpensFreshWindow(t *testing.T) {
	clock := newFakeClock()
	timer := NewOfferTimer(clock.Now)
	store := NewStore[testItem](timer, 60)

	store.Observe(snap("A"))
	store.Commit("A")
	clock.Advance(2 * time.Minute)

	store.Restart()
	if _, ok := store.State(); ok {
		t.Error("Expected idle after restart")
	}
	if got := timer.RemainingSeconds(); got != 60 {
		t.Errorf("Expected 60 seconds remaining, got %d", got)
	}
	if _, err := store.Commit("A"); err != nil {
		t.Errorf("Expected commit after restart to succeed, got %v", err)
	}
}
